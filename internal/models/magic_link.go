package models

import "time"

// MagicLinkTTL is how long an issued link stays redeemable.
const MagicLinkTTL = 15 * time.Minute

type MagicLink struct {
	Token     string     `json:"-"`
	Email     string     `json:"email"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (l *MagicLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt.Before(now)
}

// IsValid returns true if the link can still be exchanged for a session
func (l *MagicLink) IsValid(now time.Time) bool {
	return !l.Used && !l.IsExpired(now)
}
