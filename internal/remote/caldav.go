package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

type CalDAVServer struct {
	URL      string
	Username string
	Password string
}

// CalDAVSource queries calendars on preconfigured CalDAV servers. The ref
// has the form "<server name>:<calendar path>".
type CalDAVSource struct {
	servers map[string]CalDAVServer
	client  *http.Client
	now     func() time.Time
}

func NewCalDAVSource(servers map[string]CalDAVServer, client *http.Client) *CalDAVSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CalDAVSource{servers: servers, client: client, now: time.Now}
}

func ParseCalDAVRef(ref string) (server, path string, err error) {
	server, path, ok := strings.Cut(ref, ":")
	if !ok || server == "" || !strings.HasPrefix(path, "/") {
		return "", "", fmt.Errorf("invalid caldav ref %q: expected server:/path/", ref)
	}
	return server, path, nil
}

func (s *CalDAVSource) FetchRemoteEvents(ctx context.Context, ref string) ([]RemoteEvent, error) {
	name, path, err := ParseCalDAVRef(ref)
	if err != nil {
		return nil, err
	}
	server, ok := s.servers[name]
	if !ok {
		return nil, fmt.Errorf("unknown caldav server %q", name)
	}

	var httpClient webdav.HTTPClient = s.client
	if server.Username != "" && server.Password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, server.Username, server.Password)
	}

	c, err := caldav.NewClient(httpClient, server.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	now := s.now()
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: now.Add(-WindowPast),
				End:   now.Add(WindowAhead),
			}},
		},
	}

	objects, err := c.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []RemoteEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, eventsFromCalendar(obj.Data, now)...)
	}
	return events, nil
}
