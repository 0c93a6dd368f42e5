// Package main is the entrypoint for the autoreply API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/autoreply/internal/ai"
	"github.com/kiranshivaraju/autoreply/internal/api"
	"github.com/kiranshivaraju/autoreply/internal/api/handler"
	mw "github.com/kiranshivaraju/autoreply/internal/api/middleware"
	"github.com/kiranshivaraju/autoreply/internal/cache"
	"github.com/kiranshivaraju/autoreply/internal/config"
	"github.com/kiranshivaraju/autoreply/internal/engine"
	"github.com/kiranshivaraju/autoreply/internal/events"
	"github.com/kiranshivaraju/autoreply/internal/platform"
	"github.com/kiranshivaraju/autoreply/internal/scheduler"
	"github.com/kiranshivaraju/autoreply/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	aiProvider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 6. Candidate event sink
	sink, err := newEventSink(cfg.Events)
	if err != nil {
		return fmt.Errorf("create event sink: %w", err)
	}
	defer sink.Close()

	// 7. Create store and engine
	pgStore := store.NewPostgresStore(pool)

	service := engine.NewService(
		pgStore,
		redisCache,
		platform.NewFactory(cfg.Platform.BaseURL, cfg.Platform.Timeout),
		engine.NewResolver(sink, cfg.Engine.SourceLimit),
		engine.NewGenerator(aiProvider, cfg.AI.InferenceTimeout),
		engine.ServiceOptions{
			ReplyDelay: cfg.Engine.ReplyDelay,
			JobDelay:   cfg.Engine.JobDelay,
			LockTTL:    cfg.Engine.JobLockTTL,
		},
	)

	// 8. Start the batch scheduler
	var bg sync.WaitGroup
	sched := scheduler.New(service, cfg.Engine.BatchInterval)
	bg.Add(1)
	go func() {
		defer bg.Done()
		sched.Start(ctx)
	}()

	// 9. Build router with dependencies
	jobs := handler.NewJobs(pgStore, service)
	keys := handler.NewKeys(pgStore)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:    handler.NewHealthHandler(pgStore, redisCache),
		CreateAccount:    handler.NewCreateAccountHandler(pgStore),
		CreateJob:        jobs.Create,
		GetJob:           jobs.Get,
		StopJob:          jobs.Stop,
		ListAttempts:     jobs.Attempts,
		RunJob:           jobs.Run,
		TriggerBatch:     handler.NewTriggerBatchHandler(service),
		GetRun:           handler.NewGetRunHandler(service),
		CreateKeyHandler: keys.Create,
		ListKeysHandler:  keys.List,
		RevokeKeyHandler: keys.Revoke,
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	var serveErr error
	select {
	case err := <-errCh:
		serveErr = err
		stop()
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		slog.Warn("triggered runs did not finish before shutdown", "error", err)
	}
	bg.Wait()

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// newEventSink publishes to RabbitMQ in the background when configured and
// discards otherwise.
func newEventSink(cfg config.EventsConfig) (events.Sink, error) {
	if cfg.AMQPURL == "" {
		slog.Info("candidate events disabled")
		return events.NopSink{}, nil
	}
	sink, err := events.NewRabbitSink(cfg.AMQPURL, cfg.Queue)
	if err != nil {
		return nil, err
	}
	slog.Info("candidate events enabled", "queue", cfg.Queue, "buffer", cfg.Buffer)
	return events.NewAsyncSink(sink, cfg.Buffer), nil
}
