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
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentineldesk/responder/internal/audit"
	auditredis "github.com/sentineldesk/responder/internal/audit/redis"
	"github.com/sentineldesk/responder/internal/bus"
	"github.com/sentineldesk/responder/internal/config"
	"github.com/sentineldesk/responder/internal/containment"
	"github.com/sentineldesk/responder/internal/directory"
	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/escalation"
	"github.com/sentineldesk/responder/internal/incidents"
	incidentsmemory "github.com/sentineldesk/responder/internal/incidents/memory"
	incidentspostgres "github.com/sentineldesk/responder/internal/incidents/postgres"
	"github.com/sentineldesk/responder/internal/investigation"
	"github.com/sentineldesk/responder/internal/notify"
	"github.com/sentineldesk/responder/internal/pkg/ctxlog"
	"github.com/sentineldesk/responder/internal/pkg/httputil"
	"github.com/sentineldesk/responder/internal/pkg/metrics"
	"github.com/sentineldesk/responder/internal/pkg/postgres"
	"github.com/sentineldesk/responder/internal/playbooks"
	"github.com/sentineldesk/responder/internal/reporting"
	"github.com/sentineldesk/responder/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server

	eventBus     *bus.Bus
	notifyWorker *notify.Worker
	sweeper      *escalation.Sweeper
	auditCloser  func() error

	incidentService *incidents.Service

	backgroundCancel context.CancelFunc
	retentionStop    chan struct{}
	retentionWG      sync.WaitGroup
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	app := &App{
		config:        cfg,
		logger:        logger,
		retentionStop: make(chan struct{}),
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	app.backgroundCancel = backgroundCancel

	repo, err := app.setupStore(backgroundCtx)
	if err != nil {
		backgroundCancel()
		return nil, err
	}

	router, err := app.setupRouter(backgroundCtx, repo)
	if err != nil {
		app.closeResources()
		backgroundCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
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

	a.backgroundCancel()

	close(a.retentionStop)
	a.retentionWG.Wait()

	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	// Close the bus first so the notification worker drains and exits.
	if a.eventBus != nil {
		a.eventBus.Close()
	}
	if a.notifyWorker != nil {
		a.notifyWorker.Stop()
	}

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

	a.closeResources()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// IncidentService returns the incident service instance. Used in tests.
func (a *App) IncidentService() *incidents.Service {
	return a.incidentService
}

func (a *App) closeResources() {
	if a.auditCloser != nil {
		if err := a.auditCloser(); err != nil {
			a.logger.Error("close audit sink", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) setupStore(ctx context.Context) (incidents.Repository, error) {
	if a.config.Database.Driver == "memory" {
		a.logger.Info("using in-memory incident store")
		return incidentsmemory.NewRepository(), nil
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), a.config.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             a.config.Database.DSN(),
		MaxOpenConns:    int(a.config.Database.MaxConns),
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnectAttempts: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if err := runMigrations(a.config.Database); err != nil {
		db.Close()
		a.db = nil
		return nil, err
	}

	go a.collectDBMetrics(ctx)

	return incidentspostgres.NewRepository(db), nil
}

func runMigrations(cfg config.DatabaseConfig) error {
	if cfg.MigrationsPath == "" {
		return nil
	}

	migrator, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DSN())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = migrator.Close() }()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (a *App) setupRouter(ctx context.Context, repo incidents.Repository) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	// Playbooks
	registry := playbooks.NewRegistry()
	if a.config.Playbooks.Builtins {
		registry.LoadBuiltins()
	}
	if a.config.Playbooks.Dir != "" {
		stats, err := registry.LoadDir(a.config.Playbooks.Dir)
		if err != nil {
			return nil, fmt.Errorf("load playbooks from %s: %w", a.config.Playbooks.Dir, err)
		}
		slog.Info("playbooks loaded",
			"dir", a.config.Playbooks.Dir,
			"files", stats.TotalFiles,
			"loaded", stats.Loaded,
			"skipped", stats.SkippedInvalid,
		)
	}

	// Audit sink
	var auditSink audit.Sink = audit.NewLogSink(a.logger)
	if a.config.Audit.Redis.Enabled {
		redisSink, err := auditredis.NewSink(auditredis.Config{
			Addr:     a.config.Audit.Redis.Addr,
			Password: a.config.Audit.Redis.Password,
			DB:       a.config.Audit.Redis.DB,
			Key:      a.config.Audit.Redis.Key,
			MaxLen:   a.config.Audit.Redis.MaxLen,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis audit sink: %w", err)
		}
		a.auditCloser = redisSink.Close
		auditSink = audit.NewMultiSink(redisSink, audit.NewLogSink(a.logger))
	}

	// Event bus and notification channel
	a.eventBus = bus.New()
	if a.config.Notifications.Enabled {
		senders := []notify.Sender{notify.NewLogSender(a.logger)}
		if a.config.Notifications.WebhookURL != "" {
			senders = append(senders, notify.NewWebhookSender(notify.WebhookConfig{
				URL:     a.config.Notifications.WebhookURL,
				Token:   a.config.Notifications.WebhookToken,
				Timeout: a.config.Notifications.SendTimeout,
			}))
		}

		events := a.eventBus.Subscribe("notify", a.config.Notifications.QueueSize)
		a.notifyWorker = notify.NewWorker(notify.Config{
			RatePerMinute: a.config.Notifications.RatePerMinute,
			SendTimeout:   a.config.Notifications.SendTimeout,
		}, events, senders...)
		a.notifyWorker.Start(ctx)
	}

	// Containment executor and responder directory
	executor := containment.NewExecutor(a.config.Containment.ActionTimeout)
	dir := directory.NewStatic(a.config.Directory.Responders)

	// Incident service
	incidentService := incidents.NewService(repo, registry, executor, dir, auditSink, a.eventBus, incidents.Config{
		AutoContainment:     a.config.Incidents.AutoContainment,
		AutoContainSeverity: domain.Severity(a.config.Incidents.AutoContainSeverity),
		MaxAutoActions:      a.config.Incidents.MaxAutoActions,
		RetentionWindow:     a.config.Incidents.RetentionWindow,
	})
	a.incidentService = incidentService

	// Investigation workspace and reporting engine
	investigationService := investigation.NewService(incidentService)
	reportingService := reporting.NewService(incidentService, investigationService, auditSink, a.eventBus)

	// Retired incidents take their investigations and reports with them.
	incidentService.AddRetentionHook(investigationService)
	incidentService.AddRetentionHook(reportingService)

	// Escalation sweeper
	a.sweeper = escalation.NewSweeper(escalation.Config{
		SweepInterval: a.config.Escalation.SweepInterval,
		Cooldown:      a.config.Escalation.Cooldown,
	}, incidentService, a.eventBus)
	a.sweeper.Start(ctx)

	// Retention sweep
	a.retentionWG.Add(1)
	go a.runRetentionLoop(ctx, incidentService)

	incidentsHandler := incidents.NewHandler(incidentService)
	investigationHandler := investigation.NewHandler(investigationService)
	reportingHandler := reporting.NewHandler(reportingService)
	playbooksHandler := playbooks.NewHandler(registry)

	r.Route("/api/v1", func(r chi.Router) {
		incidentsHandler.RegisterRoutes(r)
		investigationHandler.RegisterRoutes(r)
		reportingHandler.RegisterRoutes(r)
		playbooksHandler.RegisterRoutes(r)

		r.Get("/actions", func(w http.ResponseWriter, _ *http.Request) {
			httputil.Success(w, http.StatusOK, executor.Actions())
		})
	})

	return r, nil
}

func (a *App) runRetentionLoop(ctx context.Context, svc *incidents.Service) {
	defer a.retentionWG.Done()

	interval := a.config.Incidents.RetentionInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.retentionStop:
			return
		case <-ticker.C:
			removed, err := svc.RunRetentionSweep(ctx)
			if err != nil {
				a.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				a.logger.Info("retention sweep removed incidents", "count", removed)
			}
		}
	}
}

func (a *App) collectDBMetrics(ctx context.Context) {
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

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

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

	return slog.New(handler)
}
