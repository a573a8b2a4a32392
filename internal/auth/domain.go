package auth

import (
	"time"

	"github.com/amlakhq/amlak/internal/rbac"
)

// User represents an authenticated profile row.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         rbac.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
