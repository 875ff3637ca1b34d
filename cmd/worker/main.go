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

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/colisflow/colisflow/internal/app"
	"github.com/colisflow/colisflow/internal/observability"
	"github.com/colisflow/colisflow/internal/platform/cache"
	"github.com/colisflow/colisflow/internal/platform/db"
	"github.com/colisflow/colisflow/internal/pricing"
	"github.com/colisflow/colisflow/internal/shipments"
	"github.com/colisflow/colisflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	cacheStore := cache.NewStore(redisClient, cfg.CacheTTL)
	pricingRepo := pricing.NewRepository(pool)
	cachedRules := pricing.NewCachedRules(pricingRepo, cacheStore)
	shipmentRepo := shipments.NewRepository(pool)
	shipmentService := shipments.NewService(shipmentRepo, cachedRules, metrics, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRepriceTenant, Handler: jobs.NewRepriceTenantHandler(shipmentService, logger)},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Sidecar listener so the worker's counters are scrapeable and the queue
	// depth is visible without going through the API process.
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	obs := chi.NewRouter()
	obs.Get("/metrics", metrics.Handler().ServeHTTP)
	obs.Route("/jobs", jobs.NewHandler(inspector, logger).MountRoutes)
	obsServer := &http.Server{
		Addr:         cfg.WorkerAddr,
		Handler:      obs,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	go func() {
		logger.Info("worker observability listening", slog.String("addr", cfg.WorkerAddr))
		if err := obsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker observability server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker observability shutdown", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
