package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// Repository defines persistence operations for property listings.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Property, int, error)
	Get(ctx context.Context, id int64) (*Property, error)
	Create(ctx context.Context, input Input) (*Property, error)
	Update(ctx context.Context, id int64, input Input) (*Property, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetPublished(ctx context.Context, id int64, published bool) error
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

const propertyColumns = `id, title, COALESCE(description, ''), type, status, price, COALESCE(area, 0),
	COALESCE(bedrooms, 0), COALESCE(bathrooms, 0), city, COALESCE(district, ''), COALESCE(address, ''),
	agent_id, published, created_at, updated_at`

func scanProperty(row pgx.Row) (*Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.Status, &p.Price, &p.Area,
		&p.Bedrooms, &p.Bathrooms, &p.City, &p.District, &p.Address,
		&p.AgentID, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns a page of listings plus the total row count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Property, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		conds = append(conds, fmt.Sprintf("(lower(title) LIKE $%d OR lower(city) LIKE $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		conds = append(conds, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		conds = append(conds, fmt.Sprintf("published = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM properties"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NormalizePage(filter.Page)
	pageSize := shared.NormalizePageSize(filter.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM properties%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		propertyColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a listing by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Property, error) {
	p, err := scanProperty(r.pool.QueryRow(ctx,
		"SELECT "+propertyColumns+" FROM properties WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a listing. New listings start available and unpublished.
func (r *PGRepository) Create(ctx context.Context, input Input) (*Property, error) {
	return scanProperty(r.pool.QueryRow(ctx,
		`INSERT INTO properties (title, description, type, status, price, area, bedrooms, bathrooms,
			city, district, address, agent_id, published, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, 0), NULLIF($7, 0), NULLIF($8, 0),
			$9, NULLIF($10, ''), NULLIF($11, ''), $12, FALSE, NOW(), NOW())
		 RETURNING `+propertyColumns,
		input.Title, input.Description, input.Type, StatusAvailable, input.Price, input.Area,
		input.Bedrooms, input.Bathrooms, input.City, input.District, input.Address, input.AgentID))
}

// Update replaces the mutable listing fields.
func (r *PGRepository) Update(ctx context.Context, id int64, input Input) (*Property, error) {
	p, err := scanProperty(r.pool.QueryRow(ctx,
		`UPDATE properties SET
			title = $2, description = NULLIF($3, ''), type = $4, price = $5,
			area = NULLIF($6, 0), bedrooms = NULLIF($7, 0), bathrooms = NULLIF($8, 0),
			city = $9, district = NULLIF($10, ''), address = NULLIF($11, ''),
			agent_id = $12, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+propertyColumns,
		id, input.Title, input.Description, input.Type, input.Price, input.Area,
		input.Bedrooms, input.Bathrooms, input.City, input.District, input.Address, input.AgentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// SetStatus updates the lifecycle status column.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPublished toggles public visibility.
func (r *PGRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET published = $2, updated_at = NOW() WHERE id = $1`, id, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a listing.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
