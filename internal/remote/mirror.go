package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/models"
	"github.com/hray3182/calfeed/internal/notify"
)

type CalendarStore interface {
	ListMirrored(ctx context.Context) ([]*models.Calendar, error)
	MarkMirrored(ctx context.Context, calendarID int64, at time.Time) error
}

type EventStore interface {
	ReplaceRemote(ctx context.Context, calendarID int64, events []*models.Event) error
}

// Invalidator drops cached renderings of a calendar.
type Invalidator interface {
	Invalidate(calendarID string)
}

// Mirror copies remote events into local storage. Local events of a
// mirrored calendar are never touched.
type Mirror struct {
	registry  *Registry
	calendars CalendarStore
	events    EventStore
	cache     Invalidator
	alerter   notify.Alerter
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewMirror(registry *Registry, calendars CalendarStore, events EventStore, cache Invalidator, alerter notify.Alerter, logger *slog.Logger) *Mirror {
	return &Mirror{
		registry:  registry,
		calendars: calendars,
		events:    events,
		cache:     cache,
		alerter:   alerter,
		logger:    logger,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Supports reports whether kind names a registered source.
func (m *Mirror) Supports(kind string) bool {
	_, ok := m.registry.Get(kind)
	return ok
}

// Sync replaces the remote events of cal with a fresh pull from its source
// and returns how many events were mirrored.
func (m *Mirror) Sync(ctx context.Context, cal *models.Calendar) (int, error) {
	if !cal.IsMirrored() || cal.SourceRef == nil {
		return 0, apperr.Validation("calendar has no remote source")
	}
	src, ok := m.registry.Get(*cal.SourceType)
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("unsupported source type %q", *cal.SourceType))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	remote, err := src.FetchRemoteEvents(fetchCtx, *cal.SourceRef)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "failed to fetch remote calendar", err)
	}

	events := make([]*models.Event, 0, len(remote))
	for _, re := range remote {
		events = append(events, re.ToModel())
	}
	if err := m.events.ReplaceRemote(ctx, cal.ID, events); err != nil {
		return 0, err
	}
	m.cache.Invalidate(cal.PublicID)

	now := m.now().UTC()
	if err := m.calendars.MarkMirrored(ctx, cal.ID, now); err != nil {
		// Events are already replaced; only the bookkeeping is stale.
		m.logger.WarnContext(ctx, "failed to mark calendar mirrored",
			"calendar", cal.PublicID, "error", err)
		m.alerter.Alert(ctx, fmt.Sprintf("calendar %s mirrored but mirrored_at not recorded: %v", cal.PublicID, err))
	} else {
		cal.MirroredAt = &now
	}

	m.logger.InfoContext(ctx, "calendar mirrored",
		"calendar", cal.PublicID, "source", *cal.SourceType, "events", len(events))
	return len(events), nil
}

// EnsureMirrored pulls a mirrored calendar that has never been synced.
// Failures are logged and alerted; the caller proceeds with what is stored.
func (m *Mirror) EnsureMirrored(ctx context.Context, cal *models.Calendar) {
	if !cal.NeedsInitialMirror() {
		return
	}
	if _, err := m.Sync(ctx, cal); err != nil {
		m.report(ctx, cal, err)
	}
}

// SyncAll re-syncs every mirrored calendar and returns how many succeeded
// and failed.
func (m *Mirror) SyncAll(ctx context.Context) (synced, failed int, err error) {
	calendars, err := m.calendars.ListMirrored(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, cal := range calendars {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if _, err := m.Sync(ctx, cal); err != nil {
			m.report(ctx, cal, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (m *Mirror) report(ctx context.Context, cal *models.Calendar, err error) {
	m.logger.WarnContext(ctx, "calendar mirror failed",
		"calendar", cal.PublicID, "error", err)
	m.alerter.Alert(ctx, fmt.Sprintf("mirror of calendar %s (%s) failed: %v",
		cal.PublicID, cal.Name, err))
}
