package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// maxFeedSize caps how much of a remote feed is read.
const maxFeedSize = 10 << 20

// ICSSource reads a published iCalendar feed. The ref is its URL; webcal://
// is treated as https://.
type ICSSource struct {
	client *http.Client
	now    func() time.Time
}

// NewICSSource fetches with client, or with a NewPublicClient when client is
// nil.
func NewICSSource(client *http.Client) *ICSSource {
	if client == nil {
		client = NewPublicClient(30 * time.Second)
	}
	return &ICSSource{client: client, now: time.Now}
}

func (s *ICSSource) FetchRemoteEvents(ctx context.Context, ref string) ([]RemoteEvent, error) {
	feedURL := ref
	if rest, ok := strings.CutPrefix(feedURL, "webcal://"); ok {
		feedURL = "https://" + rest
	}

	u, err := url.Parse(feedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid feed URL %q: expected http, https or webcal", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching feed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	var events []RemoteEvent
	now := s.now()
	dec := ical.NewDecoder(bytes.NewReader(body))
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		events = append(events, eventsFromCalendar(cal, now)...)
	}
	return events, nil
}

func validateICalFormat(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data, check whether the URL requires authentication")
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format, expected BEGIN:VCALENDAR, got: %s", preview)
	}
	return nil
}

// eventsFromCalendar extracts the non-cancelled events of cal that fall in
// the mirror window. Recurrence rules are not expanded.
func eventsFromCalendar(cal *ical.Calendar, now time.Time) []RemoteEvent {
	var events []RemoteEvent
	for _, ev := range cal.Events() {
		re, ok := parseEvent(ev)
		if !ok || !inWindow(re, now) {
			continue
		}
		events = append(events, re)
	}
	return events
}

func parseEvent(ev ical.Event) (RemoteEvent, bool) {
	if status, _ := ev.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
		return RemoteEvent{}, false
	}

	startProp := ev.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return RemoteEvent{}, false
	}
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		return RemoteEvent{}, false
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		end = time.Time{}
	}

	re := RemoteEvent{
		UID:    textProp(ev.Props, ical.PropUID),
		Title:  textProp(ev.Props, ical.PropSummary),
		Start:  start.UTC(),
		AllDay: startProp.ValueType() == ical.ValueDate,
	}
	if !end.IsZero() {
		re.End = end.UTC()
	}
	re.Description = textProp(ev.Props, ical.PropDescription)
	re.Location = textProp(ev.Props, ical.PropLocation)
	return re, true
}

func textProp(props ical.Props, name string) string {
	v, err := props.Text(name)
	if err != nil {
		return ""
	}
	return v
}
