package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// MirrorSyncer re-pulls every mirrored calendar.
type MirrorSyncer interface {
	SyncAll(ctx context.Context) (synced, failed int, err error)
}

// LinkPurger deletes magic links that expired before cutoff.
type LinkPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	// Interval between runs.
	Interval time.Duration
	// LinkRetention is how long expired magic links are kept. Zero keeps
	// them forever.
	LinkRetention time.Duration
	// StartDelay postpones the first run after Start.
	StartDelay time.Duration
}

type Scheduler struct {
	mirror   MirrorSyncer
	links    LinkPurger
	cfg      Config
	logger   *slog.Logger
	notifyCh chan struct{}
	now      func() time.Time
}

func New(mirror MirrorSyncer, links LinkPurger, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Scheduler{
		mirror:   mirror,
		links:    links,
		cfg:      cfg,
		logger:   logger,
		notifyCh: make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Notify triggers an immediate run. Non-blocking if a run is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.StartDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.StartDelay):
		}
	}

	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.run(ctx)
		case <-s.notifyCh:
			s.logger.Debug("scheduler triggered by notification")
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	s.syncMirrors(ctx)
	s.purgeLinks(ctx)
}

func (s *Scheduler) syncMirrors(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	synced, failed, err := s.mirror.SyncAll(ctx)
	if err != nil {
		s.logger.Error("failed to sync mirrored calendars", "error", err)
		return
	}
	if synced+failed > 0 {
		s.logger.Info("mirrored calendars synced", "synced", synced, "failed", failed)
	}
}

func (s *Scheduler) purgeLinks(ctx context.Context) {
	if s.links == nil || s.cfg.LinkRetention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.cfg.LinkRetention)
	n, err := s.links.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge magic links", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged expired magic links", "count", n, "cutoff", cutoff)
	}
}
