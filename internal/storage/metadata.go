package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// FileMetadata is a row in file_metadata.
type FileMetadata struct {
	ID           int64     `json:"id"`
	Bucket       string    `json:"bucket"`
	Path         string    `json:"path"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	UploadedBy   *int64    `json:"uploaded_by,omitempty"`
	Orphaned     bool      `json:"orphaned"`
	CreatedAt    time.Time `json:"created_at"`
}

// MetadataRepository persists per-object metadata alongside the object store.
type MetadataRepository interface {
	Insert(ctx context.Context, meta FileMetadata) (*FileMetadata, error)
	DeleteByPath(ctx context.Context, bucket, path string) error
	MarkOrphaned(ctx context.Context, bucket, path string) error
	ListByBucketPrefix(ctx context.Context, bucket, prefix string) ([]FileMetadata, error)
	ListOrphaned(ctx context.Context, limit int) ([]FileMetadata, error)
	Delete(ctx context.Context, id int64) error
}

// PGMetadataRepository implements MetadataRepository over PostgreSQL.
type PGMetadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository constructs a PostgreSQL metadata repository.
func NewMetadataRepository(pool *pgxpool.Pool) *PGMetadataRepository {
	return &PGMetadataRepository{pool: pool}
}

const metadataColumns = `id, bucket, path, original_name, content_type, size, uploaded_by, orphaned, created_at`

// Insert stores a new metadata row.
func (r *PGMetadataRepository) Insert(ctx context.Context, meta FileMetadata) (*FileMetadata, error) {
	var out FileMetadata
	err := r.pool.QueryRow(ctx,
		`INSERT INTO file_metadata (bucket, path, original_name, content_type, size, uploaded_by, orphaned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
		 RETURNING `+metadataColumns,
		meta.Bucket, meta.Path, meta.OriginalName, meta.ContentType, meta.Size, meta.UploadedBy).
		Scan(&out.ID, &out.Bucket, &out.Path, &out.OriginalName, &out.ContentType, &out.Size, &out.UploadedBy, &out.Orphaned, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteByPath removes the metadata row for an object.
func (r *PGMetadataRepository) DeleteByPath(ctx context.Context, bucket, path string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM file_metadata WHERE bucket = $1 AND path = $2`, bucket, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkOrphaned flags a row whose object is already gone.
func (r *PGMetadataRepository) MarkOrphaned(ctx context.Context, bucket, path string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE file_metadata SET orphaned = TRUE WHERE bucket = $1 AND path = $2`, bucket, path)
	return err
}

// ListByBucketPrefix returns non-orphaned rows under the prefix.
func (r *PGMetadataRepository) ListByBucketPrefix(ctx context.Context, bucket, prefix string) ([]FileMetadata, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+metadataColumns+` FROM file_metadata
		 WHERE bucket = $1 AND path LIKE $2 || '%' AND NOT orphaned
		 ORDER BY created_at DESC`, bucket, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMetadataRows(rows)
}

// ListOrphaned returns rows awaiting the reconciliation sweep.
func (r *PGMetadataRepository) ListOrphaned(ctx context.Context, limit int) ([]FileMetadata, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+metadataColumns+` FROM file_metadata WHERE orphaned ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMetadataRows(rows)
}

// Delete removes a metadata row by id.
func (r *PGMetadataRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM file_metadata WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanMetadataRows(rows pgx.Rows) ([]FileMetadata, error) {
	var out []FileMetadata
	for rows.Next() {
		var m FileMetadata
		if err := rows.Scan(&m.ID, &m.Bucket, &m.Path, &m.OriginalName, &m.ContentType, &m.Size, &m.UploadedBy, &m.Orphaned, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ MetadataRepository = (*PGMetadataRepository)(nil)
