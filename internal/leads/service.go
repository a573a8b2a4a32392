package leads

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/amlakhq/amlak/internal/shared"
)

// Auditor records pipeline mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AssignmentNotifier is invoked after a lead is handed to an agent. The app
// wires it to the background mail task; failures are logged, not propagated.
type AssignmentNotifier interface {
	LeadAssigned(ctx context.Context, leadID, agentID int64) error
}

// Service implements the leads pipeline.
type Service struct {
	repo     Repository
	audit    Auditor
	notifier AssignmentNotifier
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, audit Auditor, notifier AssignmentNotifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger}
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Lead, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	return items, shared.NewPagination(page, pageSize, total), nil
}

// Get fetches a lead.
func (s *Service) Get(ctx context.Context, id int64) (*Lead, error) {
	return s.repo.Get(ctx, id)
}

// Create opens a lead at the first pipeline stage.
func (s *Service) Create(ctx context.Context, actorID int64, input Input) (*Lead, error) {
	l, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "create", l.ID, nil)
	return l, nil
}

// Update replaces the mutable fields.
func (s *Service) Update(ctx context.Context, actorID, id int64, input Input) (*Lead, error) {
	l, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "update", id, nil)
	return l, nil
}

// Advance moves a lead along the pipeline. Won and lost are terminal.
func (s *Service) Advance(ctx context.Context, actorID, id int64, stage string) error {
	if !ValidStage(stage) {
		return fmt.Errorf("leads: unknown stage %q", stage)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Stage == stage {
		return nil
	}
	if !CanAdvance(current.Stage, stage) {
		return fmt.Errorf("leads: cannot move lead from %s to %s", current.Stage, stage)
	}
	if err := s.repo.SetStage(ctx, id, stage); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "stage", id, map[string]any{"from": current.Stage, "to": stage})
	return nil
}

// Assign hands the lead to an agent and triggers the assignment notification.
func (s *Service) Assign(ctx context.Context, actorID, id int64, agentID *int64) error {
	if err := s.repo.Assign(ctx, id, agentID); err != nil {
		return err
	}
	meta := map[string]any{}
	if agentID != nil {
		meta["agent_id"] = *agentID
	}
	s.recordAudit(ctx, actorID, "assign", id, meta)

	if agentID != nil && s.notifier != nil {
		if err := s.notifier.LeadAssigned(ctx, id, *agentID); err != nil && s.logger != nil {
			s.logger.Warn("lead assignment notification failed",
				slog.Int64("lead_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// Delete removes a lead.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id, nil)
	return nil
}

// CountByStage aggregates pipeline stage counts.
func (s *Service) CountByStage(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByStage(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "lead",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
