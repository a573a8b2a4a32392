package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// ErrPhoneTaken indicates a duplicate phone number.
var ErrPhoneTaken = errors.New("clients: phone already registered")

// Repository defines persistence operations for client records.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Client, int, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Create(ctx context.Context, input Input) (*Client, error)
	Update(ctx context.Context, id int64, input Input) (*Client, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const clientColumns = `id, full_name, phone, COALESCE(email, ''), COALESCE(nationality, ''),
	COALESCE(notes, ''), assigned_agent, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.Nationality,
		&c.Notes, &c.AssignedAgent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns a page of clients plus the total row count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Client, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		conds = append(conds, fmt.Sprintf("(lower(full_name) LIKE $%d OR phone LIKE $%d)", len(args), len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		conds = append(conds, fmt.Sprintf("assigned_agent = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM clients%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		clientColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a client by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Create inserts a client record.
func (r *PGRepository) Create(ctx context.Context, input Input) (*Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		`INSERT INTO clients (full_name, phone, email, nationality, notes, assigned_agent, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NOW(), NOW())
		 RETURNING `+clientColumns,
		input.FullName, input.Phone, input.Email, input.Nationality, input.Notes, input.AssignedAgent))
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return c, nil
}

// Update replaces the mutable client fields.
func (r *PGRepository) Update(ctx context.Context, id int64, input Input) (*Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		`UPDATE clients SET
			full_name = $2, phone = $3, email = NULLIF($4, ''), nationality = NULLIF($5, ''),
			notes = NULLIF($6, ''), assigned_agent = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+clientColumns,
		id, input.FullName, input.Phone, input.Email, input.Nationality, input.Notes, input.AssignedAgent))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return c, nil
}

// Delete removes a client record.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
