package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/amlakhq/amlak/internal/app"
	"github.com/amlakhq/amlak/internal/notifications"
	"github.com/amlakhq/amlak/internal/platform/cache"
	"github.com/amlakhq/amlak/internal/platform/db"
	"github.com/amlakhq/amlak/internal/shared"
	"github.com/amlakhq/amlak/internal/storage"
	"github.com/amlakhq/amlak/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
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

	provider, err := storage.NewProvider(ctx, cfg.StorageConfig())
	if err != nil {
		logger.Error("init storage provider", slog.Any("error", err))
		os.Exit(1)
	}
	storageMeta := storage.NewMetadataRepository(pool)
	storageService := storage.NewService(provider, storageMeta, logger)
	reconcileJob := jobs.NewStorageReconcileJob(storageService, logger)

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, redisClient, logger)
	expireJob := jobs.NewNotificationsExpireJob(notificationsService, logger)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	leadAssignedJob := jobs.NewLeadAssignedJob(notificationsService, idempotencyStore, logger)
	requestReceivedJob := jobs.NewRequestReceivedJob(notificationsService, logger)

	reconcileTask, err := jobs.NewStorageReconcileTask(100)
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	expireTask, err := jobs.NewNotificationsExpireTask()
	if err != nil {
		logger.Error("build expire task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStorageReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskNotificationsExpire, Handler: expireJob.Handle},
			{Type: jobs.TaskLeadAssigned, Handler: leadAssignedJob.Handle},
			{Type: jobs.TaskRequestReceived, Handler: requestReceivedJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: expireTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
