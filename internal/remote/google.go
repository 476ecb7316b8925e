package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleSource reads Google calendars shared with a service account. The
// ref is the calendar id.
type GoogleSource struct {
	service *calendar.Service
	now     func() time.Time
}

// NewGoogleSource authenticates with service-account credentials JSON.
func NewGoogleSource(ctx context.Context, credentialsJSON []byte) (*GoogleSource, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}
	return NewGoogleSourceWithClient(ctx, cfg.Client(ctx))
}

// NewGoogleSourceWithClient uses an already authenticated client. Extra
// options, such as option.WithEndpoint, are passed to the API service.
func NewGoogleSourceWithClient(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleSource, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &GoogleSource{service: service, now: time.Now}, nil
}

func (g *GoogleSource) FetchRemoteEvents(ctx context.Context, ref string) ([]RemoteEvent, error) {
	now := g.now()
	var events []RemoteEvent

	err := g.service.Events.List(ref).
		TimeMin(now.Add(-WindowPast).Format(time.RFC3339)).
		TimeMax(now.Add(WindowAhead).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if re, ok := googleEvent(item); ok {
					events = append(events, re)
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func googleEvent(item *calendar.Event) (RemoteEvent, bool) {
	if item.Status == "cancelled" || item.Start == nil {
		return RemoteEvent{}, false
	}

	re := RemoteEvent{
		UID:         item.ICalUID,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if re.UID == "" {
		re.UID = item.Id
	}

	start, allDay, err := googleTime(item.Start)
	if err != nil {
		return RemoteEvent{}, false
	}
	re.Start, re.AllDay = start, allDay

	if item.End != nil {
		if end, _, err := googleTime(item.End); err == nil {
			re.End = end
		}
	}
	return re, true
}

func googleTime(t *calendar.EventDateTime) (time.Time, bool, error) {
	if t.DateTime != "" {
		v, err := time.Parse(time.RFC3339, t.DateTime)
		return v.UTC(), false, err
	}
	v, err := time.ParseInLocation("2006-01-02", t.Date, time.UTC)
	return v, true, err
}
