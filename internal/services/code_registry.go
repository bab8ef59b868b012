package services

import (
	"sync"
	"time"

	"legaltrainer/internal/models"
)

// CodeRegistry holds live one-time codes keyed by the code value.
type CodeRegistry interface {
	// Put binds code unless a live (unexpired at now) entry already holds it.
	Put(entry models.AuthCode, now time.Time) bool
	Get(code string) (models.AuthCode, bool)
	// Take removes code only if it still maps to expected. Exactly one caller wins.
	Take(code string, expected models.AuthCode) bool
	// Sweep drops entries expired at now and returns how many were removed.
	Sweep(now time.Time) int
	Len() int
}

type memoryCodeRegistry struct {
	mu    sync.Mutex
	codes map[string]models.AuthCode
}

func NewMemoryCodeRegistry() CodeRegistry {
	return &memoryCodeRegistry{codes: make(map[string]models.AuthCode)}
}

func (r *memoryCodeRegistry) Put(entry models.AuthCode, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.codes[entry.Code]; ok && !cur.Expired(now) {
		return false
	}
	r.codes[entry.Code] = entry
	return true
}

func (r *memoryCodeRegistry) Get(code string) (models.AuthCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.codes[code]
	return e, ok
}

func (r *memoryCodeRegistry) Take(code string, expected models.AuthCode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.codes[code]
	if !ok || cur != expected {
		return false
	}
	delete(r.codes, code)
	return true
}

func (r *memoryCodeRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.codes {
		if e.Expired(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n
}

func (r *memoryCodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
