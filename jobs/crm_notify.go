package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amlakhq/amlak/internal/notifications"
	"github.com/amlakhq/amlak/internal/shared"
)

// LeadAssignedJob creates the in-app notification for an agent hand-off.
// Asynq retries tasks, so the hand-off is deduplicated through the
// idempotency store before any notification is written.
type LeadAssignedJob struct {
	Notifications *notifications.Service
	Idempotency   *shared.IdempotencyStore
	Logger        *slog.Logger
}

// NewLeadAssignedJob wires dependencies for the hand-off handler.
func NewLeadAssignedJob(svc *notifications.Service, store *shared.IdempotencyStore, logger *slog.Logger) *LeadAssignedJob {
	return &LeadAssignedJob{Notifications: svc, Idempotency: store, Logger: logger}
}

// Handle processes lead assignment tasks.
func (j *LeadAssignedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("lead assigned: handler not configured")
	}
	var payload LeadAssignedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.LeadID == 0 || payload.AgentID == 0 {
		return asynq.SkipRetry
	}

	if j.Idempotency != nil {
		key := fmt.Sprintf("lead:%d:agent:%d", payload.LeadID, payload.AgentID)
		if err := j.Idempotency.CheckAndInsert(ctx, key, "lead_assignment"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				j.logger().Info("hand-off already announced", slog.Int64("lead_id", payload.LeadID))
				return nil
			}
			return err
		}
	}

	agentID := payload.AgentID
	_, err := j.Notifications.Create(ctx, notifications.CreateInput{
		UserID:   &agentID,
		Type:     notifications.TypeInfo,
		Priority: notifications.PriorityHigh,
		Title:    "تم إسناد عميل محتمل إليك",
		Message:  "تم إسناد عميل محتمل جديد إليك، يرجى المتابعة.",
		Metadata: map[string]any{"lead_id": payload.LeadID},
	})
	if err != nil {
		j.logger().Error("create hand-off notification", slog.Any("error", err))
		return err
	}
	return nil
}

func (j *LeadAssignedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLeadAssigned))
	}
	return slog.Default().With(slog.String("job", TaskLeadAssigned))
}

// RequestReceivedJob announces a new public submission to the back office
// with a global notification.
type RequestReceivedJob struct {
	Notifications *notifications.Service
	Logger        *slog.Logger
}

// NewRequestReceivedJob wires dependencies for the submission handler.
func NewRequestReceivedJob(svc *notifications.Service, logger *slog.Logger) *RequestReceivedJob {
	return &RequestReceivedJob{Notifications: svc, Logger: logger}
}

// Handle processes request received tasks.
func (j *RequestReceivedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("request received: handler not configured")
	}
	var payload RequestReceivedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RequestID == 0 {
		return asynq.SkipRetry
	}
	_, err := j.Notifications.Create(ctx, notifications.CreateInput{
		Type:     notifications.TypeInfo,
		Priority: notifications.PriorityNormal,
		Title:    "طلب عقار جديد",
		Message:  "وصل طلب عقار جديد من النموذج العام.",
		Metadata: map[string]any{"request_id": payload.RequestID},
	})
	if err != nil {
		j.logger().Error("create submission notification", slog.Any("error", err))
		return err
	}
	return nil
}

func (j *RequestReceivedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRequestReceived))
	}
	return slog.Default().With(slog.String("job", TaskRequestReceived))
}
