package server

import (
	"net/http"
	"strings"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/models"
)

type eventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Date        string  `json:"date"`
	Time        *string `json:"time"`
	EndTime     *string `json:"endTime"`
}

type quickAddRequest struct {
	Text string `json:"text"`
}

type eventResponse struct {
	*models.Event
	Date string `json:"date"`
}

func newEventResponse(e *models.Event) eventResponse {
	return eventResponse{Event: e, Date: e.DateString()}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.createEvent(w, r, cal, req)
}

// handleQuickAddEvent creates an event from a free-text note.
func (s *Server) handleQuickAddEvent(w http.ResponseWriter, r *http.Request) {
	if s.Parser == nil {
		s.writeError(w, r, apperr.New(apperr.KindUnavailable, "quick add is not configured"))
		return
	}

	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}

	var req quickAddRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.writeError(w, r, apperr.Validation("text is required"))
		return
	}

	draft, err := s.Parser.ParseEvent(r.Context(), text, s.now())
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.KindUnavailable, "could not reach the assistant", err))
		return
	}
	if draft.Title == "" || draft.Date == "" {
		s.writeError(w, r, apperr.Validation("no event found in text"))
		return
	}

	s.createEvent(w, r, cal, eventRequest{
		Title:       draft.Title,
		Description: optional(draft.Description),
		Location:    optional(draft.Location),
		Date:        draft.Date,
		Time:        optional(draft.Time),
		EndTime:     optional(draft.EndTime),
	})
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, cal *models.Calendar, req eventRequest) {
	event, err := newEvent(cal.ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.Events.Create(r.Context(), event); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Cache.Invalidate(cal.PublicID)

	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

func newEvent(calendarID int64, req eventRequest) (*models.Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.Date == "" {
		return nil, apperr.Validation("date is required")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	event := &models.Event{
		CalendarID:  calendarID,
		Title:       title,
		Description: trimmed(req.Description),
		Location:    trimmed(req.Location),
		Date:        date,
		Origin:      models.OriginLocal,
	}

	if t := trimmed(req.Time); t != nil {
		clock, err := models.NormalizeClock(*t)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		event.StartTime = &clock
	}
	if t := trimmed(req.EndTime); t != nil {
		clock, err := models.NormalizeClock(*t)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		event.EndTime = &clock
	}
	return event, nil
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}

	if err := s.Events.Delete(r.Context(), cal.ID, r.PathValue("eventID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Cache.Invalidate(cal.PublicID)
	w.WriteHeader(http.StatusNoContent)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
