package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("users: email already registered")

// Repository defines persistence operations for profiles.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Profile, int, error)
	Get(ctx context.Context, id int64) (*Profile, error)
	Create(ctx context.Context, input CreateInput) (*Profile, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*Profile, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `id, email, full_name, COALESCE(phone, ''), role, is_active, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var role string
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = rbac.Role(role)
	return &p, nil
}

// List returns a page of profiles plus the total row count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Profile, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		conds = append(conds, fmt.Sprintf("(lower(full_name) LIKE $%d OR lower(email) LIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM profiles%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		profileColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// Get fetches a single profile by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts an admin-created account.
func (r *PGRepository) Create(ctx context.Context, input CreateInput) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, full_name, phone, password_hash, role, is_active, created_at, updated_at)
		 VALUES (lower($1), $2, NULLIF($3, ''), $4, $5, TRUE, NOW(), NOW())
		 RETURNING `+profileColumns,
		input.Email, input.FullName, input.Phone, input.PasswordHash, string(input.Role)))
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return p, nil
}

// Update patches mutable profile fields.
func (r *PGRepository) Update(ctx context.Context, id int64, input UpdateInput) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles SET
			full_name = COALESCE($2, full_name),
			phone = COALESCE(NULLIF($3, ''), phone),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, input.FullName, derefOrEmpty(input.Phone)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdateRole changes the role column.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role rbac.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles account activation.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Repository = (*PGRepository)(nil)
