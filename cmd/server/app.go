package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solhart/mediakit-api/internal/cache"
	"github.com/solhart/mediakit-api/internal/config"
	"github.com/solhart/mediakit-api/internal/core"
	"github.com/solhart/mediakit-api/internal/events"
	"github.com/solhart/mediakit-api/internal/platform/postgres"
	"github.com/solhart/mediakit-api/internal/platform/s3"
	"github.com/solhart/mediakit-api/internal/pool"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/service"
	"github.com/solhart/mediakit-api/internal/store"
	"github.com/solhart/mediakit-api/internal/task"
)

// Dependency names used for breakers, pools, caches, and queues in the
// core registry.
const (
	depObjectStore = "s3"
	depRenderer    = "renderer"

	queueDerive    = "derive"
	cacheSignedURL = "signed_urls"
)

// application holds the shared application dependencies so startup wiring
// and shutdown teardown live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger

	// core registry owns the resilience primitives and tears them down
	// in dependency order at shutdown.
	core *core.Core

	dbPool     *postgres.ConnPool
	assetStore store.AssetStore
	signer     *s3.Signer
	queue      *task.Queue

	assetService *service.AssetService
}

// newApplication creates an application with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.core = core.New(core.Options{
		DefaultBreakerConfig: breakerConfig(cfg.Resilience.Breaker),
		QueueShutdownGrace:   time.Duration(cfg.Resilience.Queue.ShutdownGraceSeconds) * time.Second,
	}, logger)

	backoff, err := backoffPreset(cfg.Resilience.RetryPreset)
	if err != nil {
		return nil, err
	}

	// Database connection pool.
	app.dbPool, err = postgres.NewConnPool(cfg.Database.URL, pool.Config{
		MinSize:          cfg.Resilience.Pool.MinSize,
		MaxSize:          cfg.Resilience.Pool.MaxSize,
		AcquireTimeout:   time.Duration(cfg.Resilience.Pool.AcquireTimeoutSeconds) * time.Second,
		ValidationWindow: time.Duration(cfg.Resilience.Pool.ValidationWindowSeconds) * time.Second,
		CreateBackoff:    backoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	app.core.RegisterPool(app.dbPool)
	app.assetStore = postgres.NewPostgresAssetStore(app.dbPool)

	// Object store client and signed-URL cache.
	app.signer, err = s3.NewSigner(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store signer: %w", err)
	}
	urlCache := cache.New[string](cacheSignedURL)
	app.core.RegisterCache(urlCache)

	// Lifecycle events go to the structured log.
	emitter := events.NewInMemoryEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))

	// Derive queue and its job handler.
	renderer, err := s3.NewRenderer(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	deriveHandler := service.NewDeriveHandler(
		app.assetStore,
		renderer,
		app.core.Breaker(depRenderer),
		backoff,
		emitter,
		logger,
	)
	app.queue, err = task.New(queueDerive, task.Config{
		Workers:  cfg.Resilience.Queue.Workers,
		Capacity: cfg.Resilience.Queue.Capacity,
	}, map[string]task.Handler{
		service.JobTypeDeriveRendition: deriveHandler.Handle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task queue: %w", err)
	}
	app.queue.Start()
	app.core.RegisterQueue(app.queue)

	// Asset service ties the pieces together.
	app.assetService, err = service.NewAssetService(
		app.assetStore,
		app.signer,
		app.queue,
		app.core.Breaker(depObjectStore),
		backoff,
		emitter,
		urlCache,
		cfg.Storage.SignedURLCacheFraction,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset service: %w", err)
	}

	logger.Info("Application initialized",
		"queue_workers", cfg.Resilience.Queue.Workers,
		"pool_max_size", cfg.Resilience.Pool.MaxSize,
		"retry_preset", cfg.Resilience.RetryPreset)
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown completes.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup tears down background work and connections: the queue drains
// first so in-flight jobs can still reach the database pool.
func (app *application) cleanup() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.core.Shutdown(shutdownCtx)
	app.logger.Info("Application shutdown completed")
}

// breakerConfig converts the config representation to breaker thresholds.
func breakerConfig(cfg config.BreakerConfig) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		SuccessThreshold: cfg.SuccessThreshold,
		RecoveryTimeout:  time.Duration(cfg.RecoveryTimeoutSeconds) * time.Second,
		CallTimeout:      time.Duration(cfg.CallTimeoutSeconds) * time.Second,
	}
}

// backoffPreset resolves a named retry preset.
func backoffPreset(name string) (resilience.BackoffSpec, error) {
	switch name {
	case "default", "":
		return resilience.DefaultBackoff(), nil
	case "aggressive":
		return resilience.AggressiveBackoff(), nil
	case "patient":
		return resilience.PatientBackoff(), nil
	default:
		return resilience.BackoffSpec{}, fmt.Errorf("unknown retry preset %q", name)
	}
}
