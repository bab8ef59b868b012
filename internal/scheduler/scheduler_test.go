package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	last  atomic.Value
}

func (c *countingSweeper) Sweep(now time.Time) int {
	c.calls.Add(1)
	c.last.Store(now)
	return 1
}

func TestSweepExpiredCodes_UsesClock(t *testing.T) {
	sw := &countingSweeper{}
	s := New(sw, time.Minute)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.SweepExpiredCodes()

	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, fixed, sw.last.Load())
}

func TestScheduler_StartRunsSweep(t *testing.T) {
	sw := &countingSweeper{}
	s := New(sw, 50*time.Millisecond)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(&countingSweeper{}, 0)
	assert.Equal(t, time.Minute, s.interval)
}
