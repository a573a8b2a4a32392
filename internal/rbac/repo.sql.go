package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserRole returns the role and active flag for a profile.
func (r *Repository) UserRole(ctx context.Context, userID int64) (Role, bool, error) {
	var role string
	var isActive bool
	err := r.pool.QueryRow(ctx, `SELECT role, is_active FROM profiles WHERE id = $1`, userID).Scan(&role, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, ErrNotFound
		}
		return "", false, err
	}
	return Role(role), isActive, nil
}

// RolePermissions returns the persisted permission tokens granted to a role.
func (r *Repository) RolePermissions(ctx context.Context, role Role) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ReplaceRolePermissions swaps the permission set for a role in one
// transaction. This is the privileged assignment update path.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, role Role, perms []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role = $1`, string(role)); err != nil {
		return err
	}
	for _, p := range perms {
		if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role, permission) VALUES ($1, $2)`, string(role), p); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
