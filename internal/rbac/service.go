package rbac

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// RepositoryPort defines the persistence lookups the resolver needs.
type RepositoryPort interface {
	UserRole(ctx context.Context, userID int64) (Role, bool, error)
	RolePermissions(ctx context.Context, role Role) ([]string, error)
	ReplaceRolePermissions(ctx context.Context, role Role, perms []string) error
}

// Service resolves effective permission sets for principals. Results are
// cached in Redis under a global version and concurrent lookups for the same
// principal are collapsed through singleflight. Consumers must treat a
// resolver error as "not yet known", never as denial or grant.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// RoleOf returns the role held by a principal. Deactivated principals keep
// their role for display but resolve to an empty permission set.
func (s *Service) RoleOf(ctx context.Context, userID int64) (Role, error) {
	role, _, err := s.repo.UserRole(ctx, userID)
	if err != nil {
		return "", err
	}
	return role, nil
}

// GetRolePermissions returns the assignment for a role, filtered to the
// closed permission enumeration.
func (s *Service) GetRolePermissions(ctx context.Context, role Role) ([]Permission, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf("rbac: unknown role %q", role)
	}
	key, err := s.cache.BuildKey(ctx, keyRolePermissions(role))
	if err != nil {
		return nil, err
	}
	var raw []string
	err = s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
		return s.repo.RolePermissions(ctx, role)
	})
	if err != nil {
		return nil, err
	}
	return filterKnown(raw), nil
}

// EffectivePermissions returns the permission set for a principal: the
// assignment of their single role. One lookup per session under normal
// operation thanks to the cache.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	key, err := s.cache.BuildKey(ctx, keyUserPermissions(userID))
	if err != nil {
		return nil, err
	}
	var raw []string
	err = s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			role, active, err := s.repo.UserRole(ctx, userID)
			if err != nil {
				return nil, err
			}
			if !active {
				return []string{}, nil
			}
			return s.repo.RolePermissions(ctx, role)
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return filterKnown(raw), nil
}

// HasPermission reports whether the principal holds the permission.
func (s *Service) HasPermission(ctx context.Context, userID int64, perm Permission) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

// HasRole reports whether the principal holds exactly the given role.
func (s *Service) HasRole(ctx context.Context, userID int64, role Role) (bool, error) {
	held, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return held == role, nil
}

// HasAnyRole reports whether the principal holds one of the given roles.
func (s *Service) HasAnyRole(ctx context.Context, userID int64, roles ...Role) (bool, error) {
	held, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if held == r {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin reports whether the principal is admin or super_admin.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	held, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return IsAdminRole(held), nil
}

// IsManager reports whether the principal is manager or above.
func (s *Service) IsManager(ctx context.Context, userID int64) (bool, error) {
	held, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return IsManagerRole(held), nil
}

// CanAccessRoute evaluates the static route table for the principal.
func (s *Service) CanAccessRoute(ctx context.Context, userID int64, routeKey string) (bool, error) {
	role, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return CanAccessRoute(routeKey, perms, role), nil
}

// SetRolePermissions replaces the assignment for a role and invalidates every
// cached permission set.
func (s *Service) SetRolePermissions(ctx context.Context, role Role, perms []Permission) error {
	if !ValidRole(role) {
		return fmt.Errorf("rbac: unknown role %q", role)
	}
	raw := make([]string, 0, len(perms))
	for _, p := range perms {
		if !ValidPermission(p) {
			return fmt.Errorf("rbac: unknown permission %q", p)
		}
		raw = append(raw, string(p))
	}
	if err := s.repo.ReplaceRolePermissions(ctx, role, raw); err != nil {
		return err
	}
	return s.Invalidate(ctx)
}

// Invalidate bumps the cache version after role or assignment mutations.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func filterKnown(raw []string) []Permission {
	perms := make([]Permission, 0, len(raw))
	for _, p := range raw {
		token := Permission(p)
		if ValidPermission(token) {
			perms = append(perms, token)
		}
	}
	return perms
}
