package clients

import (
	"context"
	"sort"
	"strconv"

	"github.com/amlakhq/amlak/internal/shared"
)

// Auditor records client book mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the client book.
type Service struct {
	repo  Repository
	audit Auditor
}

// NewService constructs a Service.
func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns clients matching the filter, Arabic-collated when requested.
func (s *Service) List(ctx context.Context, filter Filter) ([]Client, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if filter.SortArabic {
		sort.SliceStable(items, func(i, j int) bool {
			return shared.CompareArabic(items[i].FullName, items[j].FullName) < 0
		})
	}
	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	return items, shared.NewPagination(page, pageSize, total), nil
}

// Get fetches a client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a client record.
func (s *Service) Create(ctx context.Context, actorID int64, input Input) (*Client, error) {
	c, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "create", c.ID)
	return c, nil
}

// Update replaces the mutable fields.
func (s *Service) Update(ctx context.Context, actorID, id int64, input Input) (*Client, error) {
	c, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "update", id)
	return c, nil
}

// Delete removes a client record.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "client",
		EntityID: strconv.FormatInt(id, 10),
	})
}
