// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/respondnow/respondnow/internal/config"
	"github.com/respondnow/respondnow/internal/hierarchy"
	hierarchypostgres "github.com/respondnow/respondnow/internal/hierarchy/postgres"
	"github.com/respondnow/respondnow/internal/identity"
	identitypostgres "github.com/respondnow/respondnow/internal/identity/postgres"
	"github.com/respondnow/respondnow/internal/incident"
	incidentpostgres "github.com/respondnow/respondnow/internal/incident/postgres"
	"github.com/respondnow/respondnow/internal/notifications"
	notificationspostgres "github.com/respondnow/respondnow/internal/notifications/postgres"
	"github.com/respondnow/respondnow/internal/notifications/webhook"
	"github.com/respondnow/respondnow/internal/pkg/ctxlog"
	"github.com/respondnow/respondnow/internal/pkg/httputil"
	"github.com/respondnow/respondnow/internal/pkg/metrics"
	"github.com/respondnow/respondnow/internal/pkg/postgres"
	"github.com/respondnow/respondnow/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	incidentService    *incident.Service
	hierarchyService   *hierarchy.Service
	identityService    *identity.Service
	bootstrap          *hierarchy.Bootstrap
	notificationWorker *notifications.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	app.setupServices(metricsCtx)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func (a *App) setupServices(ctx context.Context) {
	var notifier incident.Notifier
	if a.config.Notifications.Enabled {
		notificationsRepo := notificationspostgres.NewRepository(a.db)
		notifier = notifications.NewOutbox(notificationsRepo)

		sender := webhook.NewSender(webhook.Config{
			URL:           a.config.Notifications.WebhookURL,
			Username:      a.config.Notifications.Username,
			RatePerSecond: a.config.Notifications.RatePerSecond,
		})

		a.notificationWorker = notifications.NewWorker(notifications.WorkerConfig{
			BatchSize:         a.config.Notifications.Worker.BatchSize,
			PollInterval:      a.config.Notifications.Worker.PollInterval,
			InitialBackoff:    a.config.Notifications.Retry.InitialBackoff,
			MaxBackoff:        a.config.Notifications.Retry.MaxBackoff,
			BackoffMultiplier: a.config.Notifications.Retry.BackoffMultiplier,
		}, notificationsRepo, sender)
		a.notificationWorker.Start(ctx)
	} else {
		slog.Info("notifications disabled")
	}

	incidentRepo := incidentpostgres.NewRepository(a.db)
	a.incidentService = incident.NewService(incidentRepo, notifier, incident.Defaults{
		AccountIdentifier: a.config.Hierarchy.DefaultAccountID,
		OrgIdentifier:     a.config.Hierarchy.DefaultOrgID,
		ProjectIdentifier: a.config.Hierarchy.DefaultProjectID,
	})

	a.hierarchyService = hierarchy.NewService(
		hierarchypostgres.NewAccountRepository(a.db),
		hierarchypostgres.NewOrganizationRepository(a.db),
		hierarchypostgres.NewProjectRepository(a.db),
		hierarchypostgres.NewUserMappingRepository(a.db),
	)

	a.identityService = identity.NewService(identitypostgres.NewRepository(a.db))

	if a.config.Bootstrap.Enabled {
		a.bootstrap = hierarchy.NewBootstrap(a.identityService, a.hierarchyService,
			hierarchy.BootstrapDefaults{
				AccountIdentifier: a.config.Hierarchy.DefaultAccountID,
				AccountName:       a.config.Hierarchy.DefaultAccountName,
				OrgIdentifier:     a.config.Hierarchy.DefaultOrgID,
				OrgName:           a.config.Hierarchy.DefaultOrgName,
				ProjectIdentifier: a.config.Hierarchy.DefaultProjectID,
				ProjectName:       a.config.Hierarchy.DefaultProjectName,
				UserID:            a.config.Hierarchy.DefaultUserID,
				UserName:          a.config.Hierarchy.DefaultUserName,
				UserEmail:         a.config.Hierarchy.DefaultUserEmail,
				UserPassword:      a.config.Hierarchy.DefaultUserPassword,
			},
			hierarchy.RetryPolicy{
				MaxAttempts:  a.config.Bootstrap.MaxAttempts,
				InitialDelay: a.config.Bootstrap.InitialDelay,
				Multiplier:   a.config.Bootstrap.Multiplier,
			})
	}
}

// Run starts the HTTP servers and the background bootstrap.
func (a *App) Run() error {
	// Bootstrap runs in the background: a failed bootstrap is logged and the
	// process keeps serving.
	if a.bootstrap != nil {
		go func() {
			if err := a.bootstrap.Run(context.Background()); err != nil {
				a.logger.Error("default hierarchy bootstrap failed", "error", err)
			}
		}()
	}

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop notification worker first
	if a.notificationWorker != nil {
		a.notificationWorker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// IncidentService returns the incident lifecycle service.
func (a *App) IncidentService() *incident.Service {
	return a.incidentService
}

// HierarchyService returns the hierarchy service.
func (a *App) HierarchyService() *hierarchy.Service {
	return a.hierarchyService
}

// IdentityService returns the identity service.
func (a *App) IdentityService() *identity.Service {
	return a.identityService
}

// Bootstrap returns the bootstrap runner. Nil when bootstrap is disabled.
func (a *App) Bootstrap() *hierarchy.Bootstrap {
	return a.bootstrap
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
