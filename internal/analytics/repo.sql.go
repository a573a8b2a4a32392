package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the dashboard aggregate queries.
type Repository interface {
	PropertyCountsByStatus(ctx context.Context) (map[string]int, error)
	LeadCountsByStage(ctx context.Context) (map[string]int, error)
	RequestsPerWeek(ctx context.Context, weeks int) (map[string]int, error)
	Totals(ctx context.Context) (Totals, error)
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// PropertyCountsByStatus groups listings by lifecycle status.
func (r *PGRepository) PropertyCountsByStatus(ctx context.Context) (map[string]int, error) {
	return r.countGroup(ctx, `SELECT status, COUNT(*) FROM properties GROUP BY status`)
}

// LeadCountsByStage groups the pipeline by stage.
func (r *PGRepository) LeadCountsByStage(ctx context.Context) (map[string]int, error) {
	return r.countGroup(ctx, `SELECT stage, COUNT(*) FROM leads GROUP BY stage`)
}

// RequestsPerWeek groups submissions by ISO week.
func (r *PGRepository) RequestsPerWeek(ctx context.Context, weeks int) (map[string]int, error) {
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
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// Totals returns the headline dashboard counters.
func (r *PGRepository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM properties),
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM leads),
			(SELECT COUNT(*) FROM property_requests),
			(SELECT COUNT(*) FROM profiles WHERE is_active)`).
		Scan(&t.Properties, &t.Clients, &t.Leads, &t.Requests, &t.ActiveUsers)
	return t, err
}

func (r *PGRepository) countGroup(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
