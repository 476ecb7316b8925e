package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/mail"
	"github.com/hray3182/calfeed/internal/models"
	"github.com/stretchr/testify/mock"
)

// memLinks mirrors the conditional update of the SQL store.
type memLinks struct {
	mu        sync.Mutex
	links     map[string]*models.MagicLink
	createErr error
}

func newMemLinks() *memLinks {
	return &memLinks{links: map[string]*models.MagicLink{}}
}

func (m *memLinks) Create(_ context.Context, link *models.MagicLink) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[link.Token] = &cp
	return nil
}

func (m *memLinks) FindUnused(_ context.Context, token string) (*models.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok || link.Used {
		return nil, apperr.NotFound("magic link not found")
	}
	cp := *link
	return &cp, nil
}

func (m *memLinks) MarkUsed(_ context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok || link.Used || link.ExpiresAt.Before(now) {
		return false, nil
	}
	link.Used = true
	link.UsedAt = &now
	return true, nil
}

func (m *memLinks) only() *models.MagicLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		return l
	}
	return nil
}

type memUsers struct {
	mu       sync.Mutex
	users    map[string]*models.User
	touchErr error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}}
}

func (m *memUsers) Upsert(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := &models.User{Email: email, CreatedAt: time.Now()}
	m.users[email] = u
	return u, nil
}

func (m *memUsers) TouchLogin(_ context.Context, email string, at time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		u = &models.User{Email: email}
		m.users[email] = u
	}
	u.LastLoginAt = &at
	return nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
