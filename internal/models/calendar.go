package models

import "time"

// Supported remote source types for mirrored calendars.
const (
	SourceICS    = "ics"
	SourceCalDAV = "caldav"
	SourceGoogle = "google"
)

type Calendar struct {
	ID          int64      `json:"-"`
	PublicID    string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	OwnerEmail  string     `json:"owner"`
	SourceType  *string    `json:"source_type,omitempty"`
	SourceRef   *string    `json:"source_ref,omitempty"`
	MirroredAt  *time.Time `json:"mirrored_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsMirrored returns true if the calendar is backed by a remote source
func (c *Calendar) IsMirrored() bool {
	return c.SourceType != nil && *c.SourceType != ""
}

// NeedsInitialMirror reports whether the remote source has never been pulled.
func (c *Calendar) NeedsInitialMirror() bool {
	return c.IsMirrored() && c.MirroredAt == nil
}
