package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hray3182/calfeed/internal/feed"
	"github.com/hray3182/calfeed/internal/models"
)

const (
	feedContentType = "text/calendar; charset=utf-8"

	// defaultMirrorBudget bounds an inline first mirror when no request
	// timeout is configured.
	defaultMirrorBudget = 5 * time.Second
)

// handleFeed serves the public subscription document of a calendar. The
// path may carry a ".ics" suffix.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	publicID := strings.TrimSuffix(r.PathValue("calendarID"), ".ics")

	if doc, ok := s.Cache.Get(publicID); ok {
		writeFeed(w, publicID, doc)
		return
	}

	cal, err := s.Calendars.GetByPublicID(ctx, publicID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.ensureMirrored(ctx, cal)

	events, err := s.Events.ListByCalendar(ctx, cal.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc := s.Renderer.Render(feed.FromModels(cal, events), s.now())
	s.Cache.Put(publicID, doc)
	writeFeed(w, publicID, doc)
}

// ensureMirrored pulls a never-synced mirrored calendar inline, bounded to a
// third of the request timeout so the stored events can still be read
// afterwards. A pull that does not finish is left to the scheduler.
func (s *Server) ensureMirrored(ctx context.Context, cal *models.Calendar) {
	if s.Mirror == nil || !cal.NeedsInitialMirror() {
		return
	}

	budget := s.cfg.RequestTimeout / 3
	if budget <= 0 {
		budget = defaultMirrorBudget
	}
	mirrorCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	s.Mirror.EnsureMirrored(mirrorCtx, cal)
	if cal.MirroredAt == nil && s.Scheduler != nil {
		s.Scheduler.Notify()
	}
}

func writeFeed(w http.ResponseWriter, publicID, doc string) {
	h := w.Header()
	h.Set("Content-Type", feedContentType)
	h.Set("Content-Disposition", `inline; filename="`+publicID+`.ics"`)
	h.Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(doc))
}
