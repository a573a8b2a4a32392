package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amlakhq/amlak/internal/storage"
)

// StorageReconcileJob retries deletes for objects whose metadata rows were
// marked orphaned after a partial failure.
type StorageReconcileJob struct {
	Storage *storage.Service
	Logger  *slog.Logger
}

// NewStorageReconcileJob wires dependencies for the reconcile handler.
func NewStorageReconcileJob(storageSvc *storage.Service, logger *slog.Logger) *StorageReconcileJob {
	return &StorageReconcileJob{Storage: storageSvc, Logger: logger}
}

// Handle processes storage reconcile tasks.
func (j *StorageReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Storage == nil {
		return errors.New("storage reconcile: handler not configured")
	}
	var payload StorageReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 100
	}
	swept, err := j.Storage.SweepOrphans(ctx, payload.Limit)
	if err != nil {
		j.logger().Error("orphan sweep", slog.Any("error", err))
		return err
	}
	if swept > 0 {
		j.logger().Info("orphan sweep completed", slog.Int("swept", swept))
	}
	return nil
}

func (j *StorageReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStorageReconcile))
	}
	return slog.Default().With(slog.String("job", TaskStorageReconcile))
}
