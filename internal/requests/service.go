package requests

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amlakhq/amlak/internal/shared"
)

const (
	// Public submission limits per caller identity.
	submitFormType   = "property_request"
	submitMaxPerHour = 5
	submitWindow     = time.Hour
)

// Auditor records request triage mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReceivedNotifier is invoked after a public submission lands. The app wires
// it to the notification fan-out and the background mail task.
type ReceivedNotifier interface {
	RequestReceived(ctx context.Context, requestID int64) error
}

// Service implements the property request flows.
type Service struct {
	repo     Repository
	limiter  *shared.RateLimiter
	audit    Auditor
	notifier ReceivedNotifier
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, limiter *shared.RateLimiter, audit Auditor, notifier ReceivedNotifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, limiter: limiter, audit: audit, notifier: notifier, logger: logger}
}

// Submit handles a public form submission. The rate limit check runs before
// the insert so abusive callers never reach the database.
func (s *Service) Submit(ctx context.Context, identity string, input SubmitInput) (*PropertyRequest, error) {
	if err := s.limiter.Allow(ctx, identity, submitFormType, submitMaxPerHour, submitWindow); err != nil {
		return nil, err
	}
	pr, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.RequestReceived(ctx, pr.ID); err != nil && s.logger != nil {
			s.logger.Warn("request received notification failed",
				slog.Int64("request_id", pr.ID), slog.Any("error", err))
		}
	}
	return pr, nil
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]PropertyRequest, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	return items, shared.NewPagination(page, pageSize, total), nil
}

// Get fetches a request.
func (s *Service) Get(ctx context.Context, id int64) (*PropertyRequest, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus moves a request through triage.
func (s *Service) SetStatus(ctx context.Context, actorID, id int64, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("requests: unknown status %q", status)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "status", id, map[string]any{"to": status})
	return nil
}

// Delete removes a request.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id, nil)
	return nil
}

// CountPerWeek aggregates submissions per week.
func (s *Service) CountPerWeek(ctx context.Context, weeks int) (map[string]int, error) {
	return s.repo.CountPerWeek(ctx, weeks)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "property_request",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
