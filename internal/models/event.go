package models

import "time"

const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

// DateLayout is the wire format of Event.Date.
const DateLayout = "2006-01-02"

type Event struct {
	ID          int64     `json:"-"`
	PublicID    string    `json:"id"`
	CalendarID  int64     `json:"-"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Date        time.Time `json:"-"`
	StartTime   *string   `json:"time,omitempty"`    // HH:MM
	EndTime     *string   `json:"endTime,omitempty"` // HH:MM
	Origin      string    `json:"origin"`
	RemoteUID   *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateString returns the civil date as YYYY-MM-DD
func (e *Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// IsRemote returns true if the event was pulled from a mirrored source
func (e *Event) IsRemote() bool {
	return e.Origin == OriginRemote
}
