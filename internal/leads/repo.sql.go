package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// Repository defines persistence operations for the leads pipeline.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Lead, int, error)
	Get(ctx context.Context, id int64) (*Lead, error)
	Create(ctx context.Context, input Input) (*Lead, error)
	Update(ctx context.Context, id int64, input Input) (*Lead, error)
	SetStage(ctx context.Context, id int64, stage string) error
	Assign(ctx context.Context, id int64, agentID *int64) error
	Delete(ctx context.Context, id int64) error
	CountByStage(ctx context.Context) (map[string]int, error)
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const leadColumns = `id, name, phone, COALESCE(email, ''), COALESCE(source, ''), stage,
	property_id, assigned_to, COALESCE(notes, ''), created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Stage,
		&l.PropertyID, &l.AssignedTo, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns a page of leads plus the total row count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Lead, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		conds = append(conds, fmt.Sprintf("(lower(name) LIKE $%d OR phone LIKE $%d)", len(args), len(args)))
	}
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		conds = append(conds, fmt.Sprintf("stage = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM leads%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		leadColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a lead by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// Create inserts a lead. New leads open at the first stage.
func (r *PGRepository) Create(ctx context.Context, input Input) (*Lead, error) {
	return scanLead(r.pool.QueryRow(ctx,
		`INSERT INTO leads (name, phone, email, source, stage, property_id, notes, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''), NOW(), NOW())
		 RETURNING `+leadColumns,
		input.Name, input.Phone, input.Email, input.Source, StageNew, input.PropertyID, input.Notes))
}

// Update replaces the mutable lead fields.
func (r *PGRepository) Update(ctx context.Context, id int64, input Input) (*Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`UPDATE leads SET
			name = $2, phone = $3, email = NULLIF($4, ''), source = NULLIF($5, ''),
			property_id = $6, notes = NULLIF($7, ''), updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+leadColumns,
		id, input.Name, input.Phone, input.Email, input.Source, input.PropertyID, input.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// SetStage moves a lead along the pipeline.
func (r *PGRepository) SetStage(ctx context.Context, id int64, stage string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET stage = $2, updated_at = NOW() WHERE id = $1`, id, stage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Assign sets or clears the responsible agent.
func (r *PGRepository) Assign(ctx context.Context, id int64, agentID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET assigned_to = $2, updated_at = NOW() WHERE id = $1`, id, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a lead.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByStage aggregates pipeline stage counts for the dashboard.
func (r *PGRepository) CountByStage(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT stage, COUNT(*) FROM leads GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
