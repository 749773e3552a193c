package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/draftdesk/draftdesk/internal/app"
	jobmetrics "github.com/draftdesk/draftdesk/internal/jobs"
	"github.com/draftdesk/draftdesk/internal/observability"
	"github.com/draftdesk/draftdesk/jobs"
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
	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR must be provided for the worker")
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	platform, err := app.NewPlatform(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("init platform", slog.Any("error", err))
		os.Exit(1)
	}
	defer platform.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	warmupJob := jobs.NewCatalogWarmupJob(platform.Shopify, platform.Assets, logger, jobmetrics.NewMetrics(metrics.Registerer()))
	warmupJob.Queue = jobClient

	warmupTask, err := jobs.NewCatalogWarmupTask(jobs.CatalogWarmupPayload{Prefetch: true, Reason: "cron"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAssetsPrefetch, Handler: warmupJob.HandlePrefetch},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CatalogWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("warmup_cron", cfg.CatalogWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
