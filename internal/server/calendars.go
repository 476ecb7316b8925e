package server

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/models"
)

const (
	timeLayout    = time.RFC3339
	maxNameLength = 200
)

type sourceRequest struct {
	Type string `json:"type"`
	Ref  string `json:"ref"`
}

type createCalendarRequest struct {
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Source      *sourceRequest `json:"source"`
}

type calendarResponse struct {
	*models.Calendar
	FeedURL string          `json:"feed_url"`
	Events  []eventResponse `json:"events,omitempty"`
}

func (s *Server) toCalendarResponse(cal *models.Calendar, events []*models.Event) calendarResponse {
	resp := calendarResponse{Calendar: cal, FeedURL: s.FeedURL(cal.PublicID)}
	for _, e := range events {
		resp.Events = append(resp.Events, newEventResponse(e))
	}
	return resp
}

func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := s.Calendars.ListByOwner(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]calendarResponse, 0, len(calendars))
	for _, cal := range calendars {
		resp = append(resp, s.toCalendarResponse(cal, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCalendarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cal, err := s.newCalendar(owner(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.Calendars.Create(ctx, cal); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.InfoContext(ctx, "calendar created", "calendar", cal.PublicID, "owner", cal.OwnerEmail)

	// The calendar exists from here on. A failed first mirror is reported
	// by the mirror and retried by the scheduler.
	s.ensureMirrored(ctx, cal)

	writeJSON(w, http.StatusCreated, s.toCalendarResponse(cal, nil))
}

func (s *Server) newCalendar(owner string, req createCalendarRequest) (*models.Calendar, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperr.Validation("name is too long")
	}

	cal := &models.Calendar{Name: name, OwnerEmail: owner}
	if req.Description != nil {
		if desc := strings.TrimSpace(*req.Description); desc != "" {
			cal.Description = &desc
		}
	}

	if req.Source != nil {
		kind := strings.ToLower(strings.TrimSpace(req.Source.Type))
		ref := strings.TrimSpace(req.Source.Ref)
		if s.Mirror == nil || !s.Mirror.Supports(kind) {
			return nil, apperr.Validation("unsupported source type")
		}
		if ref == "" {
			return nil, apperr.Validation("source ref is required")
		}
		cal.SourceType = &kind
		cal.SourceRef = &ref
	}
	return cal, nil
}

func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}

	events, err := s.Events.ListByCalendar(r.Context(), cal.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toCalendarResponse(cal, events))
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}

	if err := s.Calendars.Delete(r.Context(), cal.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Cache.Invalidate(cal.PublicID)

	s.Logger.InfoContext(r.Context(), "calendar deleted", "calendar", cal.PublicID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}
	if !cal.IsMirrored() {
		s.writeError(w, r, apperr.Validation("calendar has no remote source"))
		return
	}
	if s.Mirror == nil {
		s.writeError(w, r, apperr.New(apperr.KindUnavailable, "mirroring is not configured"))
		return
	}

	n, err := s.Mirror.Sync(r.Context(), cal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{"events": n}
	if cal.MirroredAt != nil {
		resp["mirrored_at"] = cal.MirroredAt.Format(timeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ownedCalendar loads the calendar named in the path if the caller owns it.
// Calendars of other users are reported as not found.
func (s *Server) ownedCalendar(w http.ResponseWriter, r *http.Request) (*models.Calendar, bool) {
	cal, err := s.Calendars.GetOwned(r.Context(), r.PathValue("calendarID"), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return cal, true
}
