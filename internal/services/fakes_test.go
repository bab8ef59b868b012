package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
)

type progressKey struct{ user, topic int }

// memProgress is an in-memory ProgressRepository.
type memProgress struct {
	mu      sync.Mutex
	rows    map[progressKey]models.UserProgress
	nextID  int64
	now     func() time.Time
	updates int
	failOn  string
}

func newMemProgress(now func() time.Time) *memProgress {
	return &memProgress{rows: make(map[progressKey]models.UserProgress), now: now}
}

func (m *memProgress) fail(op string) error {
	if m.failOn == op {
		return fmt.Errorf("%s: connection reset", op)
	}
	return nil
}

func (m *memProgress) Find(_ context.Context, userID, topicID int) (*models.UserProgress, error) {
	if err := m.fail("find"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[progressKey{userID, topicID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProgress) Create(_ context.Context, userID, topicID, level int) (*models.UserProgress, error) {
	if err := m.fail("create"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := progressKey{userID, topicID}
	if p, ok := m.rows[k]; ok {
		return &p, nil
	}
	m.nextID++
	now := m.now()
	p := models.UserProgress{ID: m.nextID, UserID: userID, TopicID: topicID, MasteryLevel: level, CreatedAt: now, UpdatedAt: now}
	m.rows[k] = p
	return &p, nil
}

func (m *memProgress) Update(_ context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	if err := m.fail("update"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.UpdatedAt = m.now()
	m.rows[progressKey{p.UserID, p.TopicID}] = cp
	m.updates++
	return &cp, nil
}

func (m *memProgress) ListByUser(_ context.Context, userID int) ([]models.UserProgress, error) {
	if err := m.fail("list"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserProgress
	for k, p := range m.rows {
		if k.user == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProgress) put(p models.UserProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[progressKey{p.UserID, p.TopicID}] = p
}

// memAttempts is an in-memory AttemptRepository.
type memAttempts struct {
	mu    sync.Mutex
	items []models.QuizAttempt
	err   error
}

func (m *memAttempts) Create(_ context.Context, a *models.QuizAttempt) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *a)
	return nil
}

func (m *memAttempts) ListByUser(_ context.Context, userID, limit, offset int) ([]models.QuizAttempt, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []models.QuizAttempt
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			mine = append(mine, m.items[i])
		}
	}
	if offset >= len(mine) {
		return nil, nil
	}
	mine = mine[offset:]
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

func (m *memAttempts) CountByUser(_ context.Context, userID int) (int, error) {
	st, err := m.StatsByUser(context.Background(), userID)
	return st.Total, err
}

func (m *memAttempts) StatsByUser(_ context.Context, userID int) (models.AttemptStats, error) {
	if m.err != nil {
		return models.AttemptStats{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.AttemptStats
	sum := 0
	for _, a := range m.items {
		if a.UserID == userID {
			st.Total++
			sum += a.Score
		}
	}
	if st.Total > 0 {
		st.AverageScore = float64(sum) / float64(st.Total)
	}
	return st, nil
}

// memUsers is an in-memory UserRepository with unique identities.
type memUsers struct {
	mu        sync.Mutex
	users     []*models.User
	createErr error
	findErr   error
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.users {
		if same(e.Username, u.Username) || same(e.Email, u.Email) || same(e.Phone, u.Phone) || same(e.BotIdentity, u.BotIdentity) {
			return repositories.ErrDuplicate
		}
	}
	u.ID = len(m.users) + 1
	u.CreatedAt = time.Now()
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func same(a, b *string) bool { return a != nil && b != nil && *a == *b }

func (m *memUsers) find(match func(u *models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username != nil && *u.Username == username }), nil
}

func (m *memUsers) FindByIdentity(_ context.Context, kind models.IdentityKind, value string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(func(u *models.User) bool {
		switch kind {
		case models.IdentityEmail:
			return u.Email != nil && *u.Email == value
		case models.IdentityPhone:
			return u.Phone != nil && *u.Phone == value
		case models.IdentityBot:
			return u.BotIdentity != nil && *u.BotIdentity == value
		}
		return false
	}), nil
}

func (m *memUsers) UpdateRefresh(_ context.Context, userID int, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			t, e := token, expiresAt
			u.RefreshToken, u.RefreshExpiresAt, u.RefreshRevoked = &t, &e, false
			return nil
		}
	}
	return fmt.Errorf("user %d not found", userID)
}

func (m *memUsers) RotateRefresh(_ context.Context, oldToken, newToken string, exp time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.RefreshToken != nil && *u.RefreshToken == oldToken && !u.RefreshRevoked {
			t, e := newToken, exp
			u.RefreshToken, u.RefreshExpiresAt = &t, &e
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByRefreshToken(_ context.Context, token string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token }), nil
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
