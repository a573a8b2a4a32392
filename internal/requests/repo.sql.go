package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// Repository defines persistence operations for property requests.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]PropertyRequest, int, error)
	Get(ctx context.Context, id int64) (*PropertyRequest, error)
	Create(ctx context.Context, input SubmitInput) (*PropertyRequest, error)
	SetStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	CountPerWeek(ctx context.Context, weeks int) (map[string]int, error)
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestColumns = `id, full_name, phone, COALESCE(email, ''), request_type, COALESCE(property_type, ''),
	COALESCE(city, ''), COALESCE(budget, 0), COALESCE(message, ''), status, created_at, updated_at`

func scanRequest(row pgx.Row) (*PropertyRequest, error) {
	var pr PropertyRequest
	err := row.Scan(&pr.ID, &pr.FullName, &pr.Phone, &pr.Email, &pr.RequestType, &pr.PropertyType,
		&pr.City, &pr.Budget, &pr.Message, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// List returns a page of requests plus the total row count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]PropertyRequest, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM property_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM property_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		requestColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PropertyRequest
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a request by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*PropertyRequest, error) {
	pr, err := scanRequest(r.pool.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM property_requests WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return pr, nil
}

// Create inserts a submission with the initial status.
func (r *PGRepository) Create(ctx context.Context, input SubmitInput) (*PropertyRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx,
		`INSERT INTO property_requests (full_name, phone, email, request_type, property_type, city, budget, message, status, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, 0), NULLIF($8, ''), $9, NOW(), NOW())
		 RETURNING `+requestColumns,
		input.FullName, input.Phone, input.Email, input.RequestType, input.PropertyType,
		input.City, input.Budget, input.Message, StatusNew))
}

// SetStatus updates the triage status.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE property_requests SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a request.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM property_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountPerWeek aggregates submissions per ISO week for the dashboard.
func (r *PGRepository) CountPerWeek(ctx context.Context, weeks int) (map[string]int, error) {
	if weeks <= 0 {
		weeks = 8
	}
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(date_trunc('week', created_at), 'IYYY-IW') AS week, COUNT(*)
		 FROM property_requests
		 WHERE created_at >= NOW() - ($1 || ' weeks')::interval
		 GROUP BY week ORDER BY week`, weeks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var week string
		var n int
		if err := rows.Scan(&week, &n); err != nil {
			return nil, err
		}
		counts[week] = n
	}
	return counts, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
