package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateProfile(ctx context.Context, email, fullName, phone, passwordHash string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// ErrEmailTaken indicates a duplicate sign-up.
var ErrEmailTaken = errors.New("auth: email already registered")

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a profile by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, COALESCE(phone, ''), password_hash, role, is_active, created_at, updated_at
		 FROM profiles WHERE lower(email) = lower($1)`, email).
		Scan(&user.ID, &user.Email, &user.FullName, &user.Phone, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = rbac.Role(role)
	return &user, nil
}

// CreateProfile inserts a new profile. Sign-ups always start at the client tier.
func (r *PGRepository) CreateProfile(ctx context.Context, email, fullName, phone, passwordHash string) (*User, error) {
	var user User
	var role string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, full_name, phone, password_hash, role, is_active, created_at, updated_at)
		 VALUES (lower($1), $2, NULLIF($3, ''), $4, $5, TRUE, NOW(), NOW())
		 RETURNING id, email, full_name, COALESCE(phone, ''), password_hash, role, is_active, created_at, updated_at`,
		email, fullName, phone, passwordHash, string(rbac.RoleClient)).
		Scan(&user.ID, &user.Email, &user.FullName, &user.Phone, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	user.Role = rbac.Role(role)
	return &user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
