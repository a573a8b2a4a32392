package requests

import "time"

// Request statuses.
const (
	StatusNew      = "new"
	StatusInReview = "in_review"
	StatusClosed   = "closed"
)

// Request types.
const (
	TypeBuy      = "buy"
	TypeRent     = "rent"
	TypeSell     = "sell"
	TypeEvaluate = "evaluate"
)

// PropertyRequest is a request submitted through the public site.
type PropertyRequest struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	RequestType  string    `json:"request_type"`
	PropertyType string    `json:"property_type,omitempty"`
	City         string    `json:"city,omitempty"`
	Budget       float64   `json:"budget,omitempty"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filter narrows request listings.
type Filter struct {
	Status   string
	Type     string
	City     string
	Page     int
	PageSize int
}

// SubmitInput is the public submission payload.
type SubmitInput struct {
	FullName     string  `json:"full_name" validate:"required,min=2"`
	Phone        string  `json:"phone" validate:"required,e164"`
	Email        string  `json:"email" validate:"omitempty,email"`
	RequestType  string  `json:"request_type" validate:"required,oneof=buy rent sell evaluate"`
	PropertyType string  `json:"property_type"`
	City         string  `json:"city"`
	Budget       float64 `json:"budget" validate:"omitempty,gte=0"`
	Message      string  `json:"message" validate:"omitempty,max=2000"`
}

// ValidStatus reports whether the status is known.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusInReview, StatusClosed:
		return true
	}
	return false
}
