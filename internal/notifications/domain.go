package notifications

import "time"

// Notification types.
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is a row in notifications. A nil UserID addresses every user.
type Notification struct {
	ID        int64          `json:"id"`
	UserID    *int64         `json:"user_id,omitempty"`
	Type      string         `json:"type"`
	Priority  string         `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateInput carries fields for a new notification.
type CreateInput struct {
	UserID    *int64         `json:"user_id"`
	Type      string         `json:"type" validate:"omitempty,oneof=info success warning error"`
	Priority  string         `json:"priority" validate:"omitempty,oneof=low normal high"`
	Title     string         `json:"title" validate:"required,min=2"`
	Message   string         `json:"message"`
	ActionURL string         `json:"action_url" validate:"omitempty,url"`
	Metadata  map[string]any `json:"metadata"`
	ExpiresAt *time.Time     `json:"expires_at"`
}
