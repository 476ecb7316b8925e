// Package remote pulls events from third-party calendars so they can be
// mirrored into local storage.
package remote

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hray3182/calfeed/internal/models"
)

// Window bounds which remote events are mirrored, relative to now.
var (
	WindowPast  = 30 * 24 * time.Hour
	WindowAhead = 365 * 24 * time.Hour
)

// RemoteEvent is one event as reported by a remote source, in UTC.
type RemoteEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Source fetches the events of one remote calendar identified by ref.
type Source interface {
	FetchRemoteEvents(ctx context.Context, ref string) ([]RemoteEvent, error)
}

// Registry maps source types to their implementation.
type Registry struct {
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

func (r *Registry) Register(kind string, src Source) {
	r.sources[strings.ToLower(kind)] = src
}

func (r *Registry) Get(kind string) (Source, bool) {
	src, ok := r.sources[strings.ToLower(kind)]
	return src, ok
}

// Kinds lists the registered source types in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ToModel converts e to a stored event. The civil date and times of day are
// taken in UTC; all-day events carry no time of day.
func (e RemoteEvent) ToModel() *models.Event {
	start := e.Start.UTC()
	ev := &models.Event{
		Title:  e.Title,
		Date:   time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		Origin: models.OriginRemote,
	}
	if ev.Title == "" {
		ev.Title = "(no title)"
	}
	if e.Description != "" {
		ev.Description = &e.Description
	}
	if e.Location != "" {
		ev.Location = &e.Location
	}
	if e.UID != "" {
		uid := e.UID
		ev.RemoteUID = &uid
	}
	if e.AllDay {
		return ev
	}

	startClock := start.Format("15:04")
	ev.StartTime = &startClock
	if e.End.After(e.Start) {
		endClock := e.End.UTC().Format("15:04")
		ev.EndTime = &endClock
	}
	return ev
}

func inWindow(e RemoteEvent, now time.Time) bool {
	end := e.End
	if end.IsZero() {
		end = e.Start
	}
	return !end.Before(now.Add(-WindowPast)) && !e.Start.After(now.Add(WindowAhead))
}
