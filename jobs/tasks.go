package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Queue and task type names.
const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskStorageReconcile re-deletes objects whose rows were marked orphaned.
	TaskStorageReconcile = "storage:reconcile"
	// TaskNotificationsExpire purges notifications past their expiry.
	TaskNotificationsExpire = "notifications:expire"
	// TaskLeadAssigned notifies an agent about a lead handed to them.
	TaskLeadAssigned = "leads:assigned"
	// TaskRequestReceived notifies the back office about a new public request.
	TaskRequestReceived = "requests:received"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with the SMTP relay once provisioned.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// StorageReconcilePayload bounds a single reconcile pass.
type StorageReconcilePayload struct {
	Limit int `json:"limit"`
}

// NewStorageReconcileTask constructs a reconcile task.
func NewStorageReconcileTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(StorageReconcilePayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStorageReconcile, data), nil
}

// NotificationsExpirePayload carries no options yet; kept for wire stability.
type NotificationsExpirePayload struct{}

// NewNotificationsExpireTask constructs an expiry sweep task.
func NewNotificationsExpireTask() (*asynq.Task, error) {
	data, err := json.Marshal(NotificationsExpirePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationsExpire, data), nil
}

// LeadAssignedPayload identifies the lead hand-off to announce.
type LeadAssignedPayload struct {
	LeadID  int64 `json:"lead_id"`
	AgentID int64 `json:"agent_id"`
}

// NewLeadAssignedTask constructs a lead assignment notification task.
func NewLeadAssignedTask(payload LeadAssignedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadAssigned, data), nil
}

// RequestReceivedPayload identifies the public submission to announce.
type RequestReceivedPayload struct {
	RequestID int64 `json:"request_id"`
}

// NewRequestReceivedTask constructs a request received notification task.
func NewRequestReceivedTask(payload RequestReceivedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRequestReceived, data), nil
}
