package users

import (
	"time"

	"github.com/amlakhq/amlak/internal/rbac"
)

// Profile is a managed user account as seen by administrators.
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows profile listings.
type Filter struct {
	Query    string
	Role     rbac.Role
	Active   *bool
	Page     int
	PageSize int
}

// CreateInput carries fields for an admin-created account.
type CreateInput struct {
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         rbac.Role
}

// UpdateInput carries mutable profile fields.
type UpdateInput struct {
	FullName *string
	Phone    *string
}
