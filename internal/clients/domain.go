package clients

import "time"

// Client is a brokerage customer record.
type Client struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	Nationality   string    `json:"nationality,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	AssignedAgent *int64    `json:"assigned_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Filter narrows client listings.
type Filter struct {
	Query      string
	AgentID    *int64
	SortArabic bool
	Page       int
	PageSize   int
}

// Input carries create/update fields.
type Input struct {
	FullName      string `json:"full_name" validate:"required,min=2"`
	Phone         string `json:"phone" validate:"required,e164"`
	Email         string `json:"email" validate:"omitempty,email"`
	Nationality   string `json:"nationality"`
	Notes         string `json:"notes"`
	AssignedAgent *int64 `json:"assigned_agent"`
}
