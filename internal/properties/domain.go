package properties

import "time"

// Property statuses.
const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
	StatusRented    = "rented"
)

// Property types.
const (
	TypeApartment = "apartment"
	TypeVilla     = "villa"
	TypeLand      = "land"
	TypeOffice    = "office"
	TypeShop      = "shop"
)

// Property is a real-estate listing.
type Property struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Price       float64   `json:"price"`
	Area        float64   `json:"area,omitempty"`
	Bedrooms    int       `json:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty"`
	City        string    `json:"city"`
	District    string    `json:"district,omitempty"`
	Address     string    `json:"address,omitempty"`
	AgentID     *int64    `json:"agent_id,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows property listings.
type Filter struct {
	Query      string
	Status     string
	Type       string
	City       string
	AgentID    *int64
	MinPrice   float64
	MaxPrice   float64
	Published  *bool
	SortArabic bool
	Page       int
	PageSize   int
}

// Input carries create/update fields.
type Input struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description"`
	Type        string  `json:"type" validate:"required,oneof=apartment villa land office shop"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Area        float64 `json:"area" validate:"omitempty,gt=0"`
	Bedrooms    int     `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms   int     `json:"bathrooms" validate:"omitempty,gte=0"`
	City        string  `json:"city" validate:"required"`
	District    string  `json:"district"`
	Address     string  `json:"address"`
	AgentID     *int64  `json:"agent_id"`
}

// statusTransitions captures the listing lifecycle. Sold and rented are
// terminal apart from relisting back to available.
var statusTransitions = map[string][]string{
	StatusAvailable: {StatusReserved, StatusSold, StatusRented},
	StatusReserved:  {StatusAvailable, StatusSold, StatusRented},
	StatusSold:      {StatusAvailable},
	StatusRented:    {StatusAvailable},
}

// ValidStatus reports whether the status is part of the lifecycle.
func ValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
