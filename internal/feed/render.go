// Package feed renders calendar snapshots as iCalendar subscription feeds.
package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/mo"
)

const (
	DefaultProductID = "-//calfeed//Calendar Subscriptions 1.0//EN"
	DefaultUIDDomain = "calfeed"

	// RefreshInterval is the polling hint advertised to clients.
	RefreshInterval = time.Hour

	defaultStart    = 12 * time.Hour
	defaultDuration = time.Hour

	crlf = "\r\n"

	// maxLineOctets is the longest content line allowed before folding.
	maxLineOctets = 75
)

// Calendar is the header data of a feed.
type Calendar struct {
	Name        string
	Description string
}

// Event is one VEVENT worth of data. Date is a civil date (its clock part is
// ignored); Start and End are offsets from midnight UTC.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Date        time.Time
	Start       mo.Option[time.Duration]
	End         mo.Option[time.Duration]
}

// Snapshot is everything the renderer needs. Events are emitted in the
// order given.
type Snapshot struct {
	Calendar Calendar
	Events   []Event
}

type Renderer struct {
	ProductID string
	UIDDomain string
}

func NewRenderer(productID, uidDomain string) *Renderer {
	if productID == "" {
		productID = DefaultProductID
	}
	if uidDomain == "" {
		uidDomain = DefaultUIDDomain
	}
	return &Renderer{ProductID: productID, UIDDomain: uidDomain}
}

// Render builds the feed document. generatedAt becomes every DTSTAMP.
func (r *Renderer) Render(s Snapshot, generatedAt time.Time) string {
	var b strings.Builder
	line := func(name, value string) {
		writeFolded(&b, name+":"+value)
	}

	line("BEGIN", "VCALENDAR")
	line("VERSION", "2.0")
	line("PRODID", r.ProductID)
	line("X-WR-CALNAME", Escape(s.Calendar.Name))
	if s.Calendar.Description != "" {
		line("X-WR-CALDESC", Escape(s.Calendar.Description))
	}
	line("X-WR-TIMEZONE", "UTC")
	line("REFRESH-INTERVAL;VALUE=DURATION", "PT1H")
	line("X-PUBLISHED-TTL", "PT1H")

	stamp := FormatTimestamp(generatedAt)
	for _, ev := range s.Events {
		start, end := EventBounds(ev)

		line("BEGIN", "VEVENT")
		line("UID", ev.ID+"@"+r.UIDDomain)
		line("DTSTAMP", stamp)
		line("DTSTART", FormatTimestamp(start))
		line("DTEND", FormatTimestamp(end))
		line("SUMMARY", Escape(ev.Title))
		if ev.Description != "" {
			line("DESCRIPTION", Escape(ev.Description))
		}
		if ev.Location != "" {
			line("LOCATION", Escape(ev.Location))
		}
		line("STATUS", "CONFIRMED")
		line("SEQUENCE", "0")
		line("END", "VEVENT")
	}

	line("END", "VCALENDAR")
	return b.String()
}

// EventBounds computes the UTC start and end instants of an event. Start
// defaults to noon; a missing end means one hour after start, and an end
// that is not after start falls on the following day.
func EventBounds(ev Event) (time.Time, time.Time) {
	day := time.Date(ev.Date.Year(), ev.Date.Month(), ev.Date.Day(), 0, 0, 0, 0, time.UTC)
	start := day.Add(ev.Start.OrElse(defaultStart))

	end, ok := ev.End.Get()
	if !ok {
		return start, start.Add(defaultDuration)
	}
	endAt := day.Add(end)
	if !endAt.After(start) {
		endAt = endAt.AddDate(0, 0, 1)
	}
	return start, endAt
}

// writeFolded writes one content line, folding it into continuation lines
// of at most maxLineOctets octets (including the leading space) without
// splitting a UTF-8 sequence.
func writeFolded(b *strings.Builder, s string) {
	limit := maxLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString(crlf)
		b.WriteByte(' ')
		s = s[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(s)
	b.WriteString(crlf)
}
