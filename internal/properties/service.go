package properties

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/amlakhq/amlak/internal/shared"
)

// Auditor records listing mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements listing business rules.
type Service struct {
	repo  Repository
	audit Auditor
}

// NewService constructs a Service.
func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns listings matching the filter. Arabic collation ordering is
// applied in process since the database collation is not locale aware.
func (s *Service) List(ctx context.Context, filter Filter) ([]Property, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if filter.SortArabic {
		sort.SliceStable(items, func(i, j int) bool {
			return shared.CompareArabic(items[i].Title, items[j].Title) < 0
		})
	}
	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	return items, shared.NewPagination(page, pageSize, total), nil
}

// Get fetches a listing.
func (s *Service) Get(ctx context.Context, id int64) (*Property, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a listing and records the mutation.
func (s *Service) Create(ctx context.Context, actorID int64, input Input) (*Property, error) {
	p, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "create", p.ID, nil)
	return p, nil
}

// Update replaces the mutable fields and records the mutation.
func (s *Service) Update(ctx context.Context, actorID, id int64, input Input) (*Property, error) {
	p, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "update", id, nil)
	return p, nil
}

// SetStatus moves a listing through the lifecycle.
func (s *Service) SetStatus(ctx context.Context, actorID, id int64, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("properties: unknown status %q", status)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	if !CanTransition(current.Status, status) {
		return fmt.Errorf("properties: cannot move listing from %s to %s", current.Status, status)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "status", id, map[string]any{"from": current.Status, "to": status})
	return nil
}

// SetPublished toggles public visibility of a listing.
func (s *Service) SetPublished(ctx context.Context, actorID, id int64, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "publish", id, map[string]any{"published": published})
	return nil
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "property",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
