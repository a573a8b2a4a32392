package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
)

var (
	// ErrSelfRoleChange blocks principals from changing their own role.
	ErrSelfRoleChange = errors.New("users: cannot change own role")
	// ErrInsufficientTier blocks role mutations the actor's tier does not cover.
	ErrInsufficientTier = errors.New("users: actor tier too low for target role")
	// ErrSelfDeactivate blocks principals from deactivating their own account.
	ErrSelfDeactivate = errors.New("users: cannot deactivate own account")
)

// SecurityLogger records account related security events.
type SecurityLogger interface {
	LogBestEffort(ctx context.Context, event security.Event)
}

// RoleResolver exposes the role lookups and cache invalidation the user
// management flows depend on.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID int64) (rbac.Role, error)
	Invalidate(ctx context.Context) error
}

// Service implements user administration.
type Service struct {
	repo   Repository
	roles  RoleResolver
	events SecurityLogger
}

// NewService constructs a Service.
func NewService(repo Repository, roles RoleResolver, events SecurityLogger) *Service {
	return &Service{repo: repo, roles: roles, events: events}
}

// List returns profiles matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter Filter) ([]Profile, shared.Pagination, error) {
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	return profiles, shared.NewPagination(page, pageSize, total), nil
}

// Get fetches a profile by id.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a new account. The actor must outrank the assigned role.
func (s *Service) Create(ctx context.Context, actorID int64, email, fullName, phone, password string, role rbac.Role) (*Profile, error) {
	if !rbac.ValidRole(role) {
		return nil, fmt.Errorf("users: unknown role %q", role)
	}
	actorRole, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanManage(actorRole, role) {
		return nil, ErrInsufficientTier
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, CreateInput{
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Update patches mutable profile fields.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Profile, error) {
	return s.repo.Update(ctx, id, input)
}

// UpdateRole changes a target's role. Self-changes are rejected outright, and
// the actor must outrank both the target's current role and the new one.
func (s *Service) UpdateRole(ctx context.Context, actorID, targetID int64, newRole rbac.Role) error {
	if actorID == targetID {
		return ErrSelfRoleChange
	}
	if !rbac.ValidRole(newRole) {
		return fmt.Errorf("users: unknown role %q", newRole)
	}
	actorRole, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !rbac.CanManage(actorRole, target.Role) || !rbac.CanManage(actorRole, newRole) {
		return ErrInsufficientTier
	}
	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		return err
	}
	if s.events != nil {
		s.events.LogBestEffort(ctx, security.Event{
			EventType: security.EventRoleChanged,
			UserID:    &actorID,
			Severity:  security.SeverityInfo,
			Metadata: map[string]any{
				"target_id": targetID,
				"old_role":  string(target.Role),
				"new_role":  string(newRole),
			},
		})
	}
	return s.roles.Invalidate(ctx)
}

// SetActive toggles account activation. Deactivation takes effect on the next
// permission resolution once the cache version is bumped.
func (s *Service) SetActive(ctx context.Context, actorID, targetID int64, active bool) error {
	if actorID == targetID && !active {
		return ErrSelfDeactivate
	}
	actorRole, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !rbac.CanManage(actorRole, target.Role) {
		return ErrInsufficientTier
	}
	if err := s.repo.SetActive(ctx, targetID, active); err != nil {
		return err
	}
	return s.roles.Invalidate(ctx)
}
