package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amlakhq/amlak/internal/notifications"
)

// NotificationsExpireJob purges notifications past their expiry time.
type NotificationsExpireJob struct {
	Notifications *notifications.Service
	Logger        *slog.Logger
}

// NewNotificationsExpireJob wires dependencies for the expiry handler.
func NewNotificationsExpireJob(svc *notifications.Service, logger *slog.Logger) *NotificationsExpireJob {
	return &NotificationsExpireJob{Notifications: svc, Logger: logger}
}

// Handle processes notification expiry tasks.
func (j *NotificationsExpireJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("notifications expire: handler not configured")
	}
	removed, err := j.Notifications.ExpireSweep(ctx)
	if err != nil {
		j.logger().Error("expiry sweep", slog.Any("error", err))
		return err
	}
	if removed > 0 {
		j.logger().Info("expired notifications removed", slog.Int64("removed", removed))
	}
	return nil
}

func (j *NotificationsExpireJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNotificationsExpire))
	}
	return slog.Default().With(slog.String("job", TaskNotificationsExpire))
}
