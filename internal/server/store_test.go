package server

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/mail"
	"github.com/hray3182/calfeed/internal/models"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	calendars map[int64]*models.Calendar
	events    map[int64]*models.Event
	links     map[string]*models.MagicLink
	users     map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		calendars: map[int64]*models.Calendar{},
		events:    map[int64]*models.Event{},
		links:     map[string]*models.MagicLink{},
		users:     map[string]*models.User{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type memCalendars struct{ *memStore }

func (m memCalendars) Create(_ context.Context, cal *models.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal.ID = m.id()
	cal.PublicID = "cal-" + strconv.FormatInt(cal.ID, 10)
	cal.CreatedAt = time.Now()
	cp := *cal
	m.calendars[cal.ID] = &cp
	return nil
}

func (m memCalendars) GetByPublicID(_ context.Context, publicID string) (*models.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calendars {
		if c.PublicID == publicID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("calendar not found")
}

func (m memCalendars) GetOwned(ctx context.Context, publicID, owner string) (*models.Calendar, error) {
	cal, err := m.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if cal.OwnerEmail != owner {
		return nil, apperr.NotFound("calendar not found")
	}
	return cal, nil
}

func (m memCalendars) ListByOwner(_ context.Context, owner string) ([]*models.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Calendar
	for _, c := range m.calendars {
		if c.OwnerEmail == owner {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCalendars) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calendars[id]; !ok {
		return apperr.NotFound("calendar not found")
	}
	delete(m.calendars, id)
	for eid, e := range m.events {
		if e.CalendarID == id {
			delete(m.events, eid)
		}
	}
	return nil
}

type memEvents struct{ *memStore }

func (m memEvents) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	e.PublicID = "evt-" + strconv.FormatInt(e.ID, 10)
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m memEvents) ListByCalendar(_ context.Context, calendarID int64) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Event
	for _, e := range m.events {
		if e.CalendarID == calendarID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m memEvents) Delete(_ context.Context, calendarID int64, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.events {
		if e.CalendarID == calendarID && e.PublicID == publicID {
			delete(m.events, id)
			return nil
		}
	}
	return apperr.NotFound("event not found")
}

type memLinks struct{ *memStore }

func (m memLinks) Create(_ context.Context, link *models.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[link.Token] = &cp
	return nil
}

func (m memLinks) FindUnused(_ context.Context, token string) (*models.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok || link.Used {
		return nil, apperr.NotFound("magic link not found")
	}
	cp := *link
	return &cp, nil
}

func (m memLinks) MarkUsed(_ context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok || link.Used || link.ExpiresAt.Before(now) {
		return false, nil
	}
	link.Used = true
	return true, nil
}

type memUsers struct{ *memStore }

func (m memUsers) Upsert(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := &models.User{Email: email}
	m.users[email] = u
	return u, nil
}

func (m memUsers) TouchLogin(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

// outbox records sent mail.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last() mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[len(o.sent)-1]
}
