package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/auth"
	"github.com/example/eventboard/internal/calendar"
	"github.com/example/eventboard/internal/config"
	"github.com/example/eventboard/internal/content"
	httptransport "github.com/example/eventboard/internal/http"
	"github.com/example/eventboard/internal/i18n"
	"github.com/example/eventboard/internal/jobs"
	"github.com/example/eventboard/internal/logging"
	"github.com/example/eventboard/internal/metrics"
	"github.com/example/eventboard/internal/persistence"
	"github.com/example/eventboard/internal/persistence/memory"
	"github.com/example/eventboard/internal/persistence/sqlite"
)

func main() {
	os.Exit(run())
}

// run serves until interrupted and returns the process exit code. Deferred
// cleanup runs before main exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		return 1
	}
	logger := logging.Setup(os.Stdout, logging.ParseLevel(cfg.LogLevel))

	storage, err := openStorage(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return 1
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := auth.NewMicrosoftProvider(auth.MicrosoftConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		Tenant:       cfg.OAuth.Tenant,
	})

	svc, err := build(wiring{
		Config:   cfg,
		Storage:  storage,
		Provider: provider,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to assemble service", "error", err)
		return 1
	}
	defer svc.limiter.Stop()

	svc.scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.scheduler.Stop(stopCtx); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           svc.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("event board listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return 1
	}
	return 0
}

// storage is implemented by both the SQLite and in-memory stores.
type storage interface {
	persistence.EventRepository
	persistence.UserRepository
	persistence.SessionRepository
	Close() error
}

// openStorage opens SQLite when dsn is set and falls back to the in-memory
// store otherwise.
func openStorage(ctx context.Context, dsn string, logger *slog.Logger) (storage, error) {
	if strings.TrimSpace(dsn) == "" {
		logger.Warn("EVENTBOARD_SQLITE_DSN not set; using in-memory storage")
		return memory.New(), nil
	}

	store, err := sqlite.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("sqlite storage ready", "driver", "sqlite")
	return store, nil
}

type wiring struct {
	Config   config.Config
	Storage  storage
	Provider application.IdentityProvider
	Registry *prometheus.Registry
	Logger   *slog.Logger
	Now      func() time.Time
}

type service struct {
	handler   http.Handler
	auth      *application.AuthService
	events    *application.EventService
	limiter   *httptransport.RateLimiter
	scheduler *jobs.Scheduler
}

// build assembles services, handlers and background jobs without starting
// anything.
func build(w wiring) (*service, error) {
	cfg := w.Config
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	collector := metrics.NewCollector(w.Registry)
	bundle, err := i18n.NewBundle()
	if err != nil {
		return nil, err
	}
	catalog := content.NewCatalog(cfg.Images)

	eventRepo := newEventRepositoryAdapter(w.Storage)
	userRepo := newUserRepositoryAdapter(w.Storage)
	sessionRepo := newSessionRepositoryAdapter(w.Storage)

	eventService := application.NewEventService(application.EventServiceDeps{
		Events:      eventRepo,
		Users:       userRepo,
		Content:     content.NewPolicy(content.NewDetector()),
		Sanitizer:   content.NewSanitizer(),
		Images:      catalog,
		Location:    loc,
		QuotaLimit:  cfg.QuotaLimit,
		IDGenerator: uuid.NewString,
		Now:         now,
		Logger:      logger,
		Recorder:    collector,
	})
	userService := application.NewUserServiceWithLogger(userRepo, now, logger, collector)
	authService := application.NewAuthService(application.AuthServiceDeps{
		Provider:        w.Provider,
		Accounts:        userRepo,
		Sessions:        sessionRepo,
		IDGenerator:     uuid.NewString,
		TokenGenerator:  func() string { return randomHex(32) },
		Now:             now,
		SessionTTL:      cfg.SessionTTL,
		BootstrapAdmins: cfg.Admins,
		Logger:          logger,
		Recorder:        collector,
	})

	limiter := httptransport.NewRateLimiter(
		httptransport.PerMinute(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		collector,
	)

	scheduler := jobs.NewScheduler(loc, logger)
	if err := scheduler.AddSessionPurge(cfg.PurgeSchedule, authService, collector); err != nil {
		limiter.Stop()
		return nil, err
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth: httptransport.NewAuthHandler(httptransport.AuthHandlerConfig{
			Service:      authService,
			Users:        userService,
			CookieSecure: cfg.CookieSecure,
			Logger:       logger,
		}),
		Events: httptransport.NewEventHandler(httptransport.EventHandlerConfig{
			Service: eventService,
			Calendar: calendar.NewExporter(calendar.Config{
				BaseURL:  cfg.BaseURL,
				Location: loc,
			}),
			Images: catalog,
			Logger: logger,
		}),
		Users:          httptransport.NewUserHandler(userService, logger),
		Sessions:       authService,
		Bundle:         bundle,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(w.Registry),
		RateLimit:      limiter.Middleware(),
		Logger:         logger,
	})

	return &service{
		handler:   handler,
		auth:      authService,
		events:    eventService,
		limiter:   limiter,
		scheduler: scheduler,
	}, nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// crypto/rand failed; two v4 UUIDs still carry 244 random bits.
		return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(buf)
}
