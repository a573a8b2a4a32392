package security

import "time"

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event types recorded by the platform.
const (
	EventLoginFailed      = "login_failed"
	EventLoginSucceeded   = "login_succeeded"
	EventRoleChanged      = "role_changed"
	EventPermissionDenied = "permission_denied"
	EventRateLimited      = "rate_limited"
)

// Event is a row in security_events.
type Event struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	UserID    *int64         `json:"user_id,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Severity  string         `json:"severity"`
	CreatedAt time.Time      `json:"created_at"`
}
