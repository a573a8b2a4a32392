package leads

import "time"

// Pipeline stages.
const (
	StageNew       = "new"
	StageContacted = "contacted"
	StageQualified = "qualified"
	StageWon       = "won"
	StageLost      = "lost"
)

// Lead is a CRM pipeline entry.
type Lead struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source,omitempty"`
	Stage      string    `json:"stage"`
	PropertyID *int64    `json:"property_id,omitempty"`
	AssignedTo *int64    `json:"assigned_to,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows lead listings.
type Filter struct {
	Query      string
	Stage      string
	AssignedTo *int64
	Page       int
	PageSize   int
}

// Input carries create/update fields.
type Input struct {
	Name       string `json:"name" validate:"required,min=2"`
	Phone      string `json:"phone" validate:"required,e164"`
	Email      string `json:"email" validate:"omitempty,email"`
	Source     string `json:"source"`
	PropertyID *int64 `json:"property_id"`
	Notes      string `json:"notes"`
}

// stageTransitions captures the pipeline. Won and lost are terminal.
var stageTransitions = map[string][]string{
	StageNew:       {StageContacted, StageLost},
	StageContacted: {StageQualified, StageLost},
	StageQualified: {StageWon, StageLost},
	StageWon:       {},
	StageLost:      {},
}

// ValidStage reports whether the stage is part of the pipeline.
func ValidStage(stage string) bool {
	_, ok := stageTransitions[stage]
	return ok
}

// CanAdvance reports whether the pipeline permits moving between stages.
func CanAdvance(from, to string) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
