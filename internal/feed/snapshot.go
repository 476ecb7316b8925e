package feed

import (
	"time"

	"github.com/hray3182/calfeed/internal/models"
	"github.com/samber/mo"
)

// FromModels builds a Snapshot from stored records. Unparseable times of day
// are treated as absent.
func FromModels(cal *models.Calendar, events []*models.Event) Snapshot {
	s := Snapshot{
		Calendar: Calendar{
			Name:        cal.Name,
			Description: deref(cal.Description),
		},
		Events: make([]Event, 0, len(events)),
	}
	for _, e := range events {
		s.Events = append(s.Events, Event{
			ID:          e.PublicID,
			Title:       e.Title,
			Description: deref(e.Description),
			Location:    deref(e.Location),
			Date:        e.Date,
			Start:       clockOption(e.StartTime),
			End:         clockOption(e.EndTime),
		})
	}
	return s
}

func clockOption(s *string) mo.Option[time.Duration] {
	if s == nil || *s == "" {
		return mo.None[time.Duration]()
	}
	d, err := models.ParseClock(*s)
	if err != nil {
		return mo.None[time.Duration]()
	}
	return mo.Some(d)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
