// Package server exposes the HTTP API: public feeds, the magic-link sign-in
// flow and the authenticated calendar endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hray3182/calfeed/internal/ai"
	"github.com/hray3182/calfeed/internal/auth"
	"github.com/hray3182/calfeed/internal/feed"
	"github.com/hray3182/calfeed/internal/models"
)

type CalendarStore interface {
	Create(ctx context.Context, cal *models.Calendar) error
	GetByPublicID(ctx context.Context, publicID string) (*models.Calendar, error)
	GetOwned(ctx context.Context, publicID, owner string) (*models.Calendar, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Calendar, error)
	Delete(ctx context.Context, calendarID int64) error
}

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	ListByCalendar(ctx context.Context, calendarID int64) ([]*models.Event, error)
	Delete(ctx context.Context, calendarID int64, publicID string) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Mirror keeps remote-backed calendars in sync with their source.
type Mirror interface {
	Supports(kind string) bool
	Sync(ctx context.Context, cal *models.Calendar) (int, error)
	EnsureMirrored(ctx context.Context, cal *models.Calendar)
}

// EventParser turns free text into an event draft.
type EventParser interface {
	ParseEvent(ctx context.Context, text string, now time.Time) (*ai.EventDraft, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier wakes the background scheduler.
type Notifier interface {
	Notify()
}

type Config struct {
	BackendBaseURL string
	FrontendURL    string
	RequestTimeout time.Duration
}

// Deps are the collaborators of a Server. Mirror, Parser and Scheduler are
// optional.
type Deps struct {
	DB        Pinger
	Calendars CalendarStore
	Events    EventStore
	Users     UserStore
	Issuer    *auth.Issuer
	Verifier  *auth.Verifier
	Renderer  *feed.Renderer
	Cache     *feed.Cache
	Mirror    Mirror
	Parser    EventParser
	Scheduler Notifier
	Logger    *slog.Logger
}

type Server struct {
	cfg Config
	Deps
	now func() time.Time
}

func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Renderer == nil {
		deps.Renderer = feed.NewRenderer("", "")
	}
	return &Server{cfg: cfg, Deps: deps, now: time.Now}
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /feeds/{calendarID}", s.handleFeed)

	mux.HandleFunc("POST /auth/magic-link", s.handleRequestMagicLink)
	mux.HandleFunc("GET /auth/verify/{token}", s.handleVerifyMagicLink)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("GET /api/calendars", s.handleListCalendars)
	api.HandleFunc("POST /api/calendars", s.handleCreateCalendar)
	api.HandleFunc("GET /api/calendars/{calendarID}", s.handleGetCalendar)
	api.HandleFunc("DELETE /api/calendars/{calendarID}", s.handleDeleteCalendar)
	api.HandleFunc("POST /api/calendars/{calendarID}/events", s.handleCreateEvent)
	api.HandleFunc("POST /api/calendars/{calendarID}/events/quick", s.handleQuickAddEvent)
	api.HandleFunc("DELETE /api/calendars/{calendarID}/events/{eventID}", s.handleDeleteEvent)
	api.HandleFunc("POST /api/calendars/{calendarID}/sync", s.handleSyncCalendar)
	mux.Handle("/api/", s.requireSession(api))

	var h http.Handler = mux
	h = s.cors(h)
	h = s.timeout(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	return h
}

// FeedURL is the public subscription address of a calendar.
func (s *Server) FeedURL(publicID string) string {
	return s.cfg.BackendBaseURL + "/feeds/" + publicID + ".ics"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			s.Logger.ErrorContext(r.Context(), "health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
