package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hray3182/calfeed/internal/ai"
	"github.com/hray3182/calfeed/internal/auth"
	"github.com/hray3182/calfeed/internal/config"
	"github.com/hray3182/calfeed/internal/database"
	"github.com/hray3182/calfeed/internal/feed"
	"github.com/hray3182/calfeed/internal/mail"
	"github.com/hray3182/calfeed/internal/models"
	"github.com/hray3182/calfeed/internal/notify"
	"github.com/hray3182/calfeed/internal/remote"
	"github.com/hray3182/calfeed/internal/repository"
	"github.com/hray3182/calfeed/internal/scheduler"
	"github.com/hray3182/calfeed/internal/server"
)

const (
	feedCacheSize   = 1024
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Production)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI, database.Options{ConnectTimeout: 5 * time.Second})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database migrations completed")

	calendarRepo := repository.NewCalendarRepository(db)
	eventRepo := repository.NewEventRepository(db)
	linkRepo := repository.NewMagicLinkRepository(db)
	userRepo := repository.NewUserRepository(db)

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	alerter, err := newAlerter(cfg, logger)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessions([]byte(cfg.SessionSecret))
	if err != nil {
		return err
	}
	issuer := auth.NewIssuer(linkRepo, userRepo, mailer, sessions, auth.IssuerConfig{
		BackendBaseURL: cfg.BackendBaseURL,
		MailTimeout:    cfg.MailTimeout,
	}, logger)
	verifier := auth.NewVerifier(linkRepo, userRepo, sessions, logger)

	registry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cache := feed.NewCache(feedCacheSize, cfg.FeedCacheTTL)
	mirror := remote.NewMirror(registry, calendarRepo, eventRepo, cache, alerter, logger)

	sched := scheduler.New(mirror, linkRepo, scheduler.Config{
		Interval:      cfg.SyncInterval,
		LinkRetention: cfg.LinkRetention,
		StartDelay:    2 * time.Second,
	}, logger)
	go sched.Start(ctx)

	// Initialize AI client (optional)
	var parser server.EventParser
	if cfg.AIEnabled() {
		parser = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		logger.Info("AI client initialized", "model", cfg.AIModel)
	} else {
		logger.Info("AI client not configured, quick add disabled")
	}

	srv := server.New(server.Config{
		BackendBaseURL: cfg.BackendBaseURL,
		FrontendURL:    cfg.FrontendURL,
		RequestTimeout: cfg.RequestTimeout,
	}, server.Deps{
		DB:        db,
		Calendars: calendarRepo,
		Events:    eventRepo,
		Users:     userRepo,
		Issuer:    issuer,
		Verifier:  verifier,
		Renderer:  feed.NewRenderer(cfg.FeedProductID, cfg.FeedUIDDomain),
		Cache:     cache,
		Mirror:    mirror,
		Parser:    parser,
		Scheduler: sched,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "base_url", cfg.BackendBaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newMailer(cfg *config.Config, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP not configured, sign-in links will only be logged")
		return mail.NewLogMailer(logger), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})
}

func newAlerter(cfg *config.Config, logger *slog.Logger) (notify.Alerter, error) {
	if cfg.TelegramToken == "" {
		return notify.NewLogAlerter(logger), nil
	}
	return notify.NewTelegramAlerter(cfg.TelegramToken, cfg.TelegramAlertChatID, logger)
}

// newRegistry registers the public ICS source plus whatever providers the
// providers file configures.
func newRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*remote.Registry, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	registry := remote.NewRegistry()
	// ICS URLs come from users; CalDAV and Google endpoints come from the
	// operator.
	registry.Register(models.SourceICS, remote.NewICSSource(remote.NewPublicClient(30*time.Second)))

	if len(cfg.Providers.CalDAV) > 0 {
		servers := make(map[string]remote.CalDAVServer, len(cfg.Providers.CalDAV))
		for name, p := range cfg.Providers.CalDAV {
			servers[name] = remote.CalDAVServer{URL: p.ServerURL, Username: p.Username, Password: p.Password}
		}
		registry.Register(models.SourceCalDAV, remote.NewCalDAVSource(servers, client))
	}

	if g := cfg.Providers.Google; g != nil {
		credentials, err := os.ReadFile(g.CredentialsFile)
		if err != nil {
			return nil, err
		}
		src, err := remote.NewGoogleSource(ctx, credentials)
		if err != nil {
			return nil, err
		}
		registry.Register(models.SourceGoogle, src)
	}

	logger.Info("remote sources registered", "kinds", registry.Kinds())
	return registry, nil
}
