package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amlakhq/amlak/internal/shared"
)

// ErrUnknownBucket rejects operations outside the managed bucket catalog.
var ErrUnknownBucket = errors.New("storage: unknown bucket")

// ErrInvalidPrefix rejects path prefixes that escape the bucket root.
var ErrInvalidPrefix = errors.New("storage: invalid path prefix")

// FileInfo is the merged listing view: object store existence plus metadata
// details when a row is available.
type FileInfo struct {
	Bucket     string    `json:"bucket"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedBy *int64    `json:"uploaded_by,omitempty"`
	URL        string    `json:"url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service owns the dual write between the object store and file_metadata.
type Service struct {
	provider Provider
	meta     MetadataRepository
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(provider Provider, meta MetadataRepository, logger *slog.Logger) *Service {
	return &Service{provider: provider, meta: meta, logger: logger}
}

// ObjectKey builds a collision-free object key from the original filename.
// No listing round-trip is needed to guarantee uniqueness.
func ObjectKey(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), token, ext)
}

// UploadRequest carries a pending upload plus caller options. PathPrefix
// nests the generated key under a folder; CacheControl and Upsert pass
// through to the object store.
type UploadRequest struct {
	Bucket       string
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
	UploadedBy   *int64
	PathPrefix   string
	CacheControl string
	Upsert       bool
}

// normalizePrefix cleans a caller-supplied folder prefix. Anything that
// would climb out of the bucket root is rejected.
func normalizePrefix(raw string) (string, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "", nil
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPrefix
	}
	return cleaned, nil
}

// Upload stores the object first, then its metadata row. When the row insert
// fails the object is deleted again so the store never accumulates entries
// invisible to listings. The final key is `{prefix}/{generated}` when a
// prefix is supplied, `{generated}` otherwise.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*FileMetadata, error) {
	info, ok := BucketInfo(req.Bucket)
	if !ok {
		return nil, ErrUnknownBucket
	}
	prefix, err := normalizePrefix(req.PathPrefix)
	if err != nil {
		return nil, err
	}
	key := ObjectKey(req.OriginalName)
	if prefix != "" {
		key = prefix + "/" + key
	}

	if _, err := s.provider.Upload(ctx, UploadInput{
		Bucket:       req.Bucket,
		Path:         key,
		ContentType:  req.ContentType,
		CacheControl: req.CacheControl,
		Upsert:       req.Upsert,
		Body:         req.Body,
	}); err != nil {
		return nil, err
	}

	meta, err := s.meta.Insert(ctx, FileMetadata{
		Bucket:       req.Bucket,
		Path:         key,
		OriginalName: req.OriginalName,
		ContentType:  req.ContentType,
		Size:         req.Size,
		UploadedBy:   req.UploadedBy,
	})
	if err != nil {
		if delErr := s.provider.Delete(ctx, req.Bucket, key); delErr != nil && s.logger != nil {
			s.logger.Error("compensating delete failed",
				slog.String("bucket", req.Bucket), slog.String("path", key), slog.Any("error", delErr))
		}
		return nil, err
	}

	if info.Public && s.logger != nil {
		s.logger.Debug("uploaded public object", slog.String("url", s.provider.PublicURL(req.Bucket, key)))
	}
	return meta, nil
}

// DeleteFile removes the object, then the metadata row. A failed row delete
// leaves the row flagged orphaned for the reconciliation sweep instead of
// failing the request.
func (s *Service) DeleteFile(ctx context.Context, bucket, objectPath string) error {
	if _, ok := BucketInfo(bucket); !ok {
		return ErrUnknownBucket
	}
	if err := s.provider.Delete(ctx, bucket, objectPath); err != nil {
		return err
	}
	if err := s.meta.DeleteByPath(ctx, bucket, objectPath); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if markErr := s.meta.MarkOrphaned(ctx, bucket, objectPath); markErr != nil && s.logger != nil {
			s.logger.Error("orphan mark failed",
				slog.String("bucket", bucket), slog.String("path", objectPath), slog.Any("error", markErr))
		}
	}
	return nil
}

// ListFiles merges the object store listing with metadata rows. The store is
// the source of truth for existence; metadata supplies original name, size
// and uploader, degrading to store-reported values for untracked objects.
func (s *Service) ListFiles(ctx context.Context, bucket, prefix string) ([]FileInfo, error) {
	info, ok := BucketInfo(bucket)
	if !ok {
		return nil, ErrUnknownBucket
	}
	objects, err := s.provider.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.meta.ListByBucketPrefix(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]FileMetadata, len(rows))
	for _, row := range rows {
		byPath[row.Path] = row
	}

	files := make([]FileInfo, 0, len(objects))
	for _, obj := range objects {
		file := FileInfo{
			Bucket:    bucket,
			Path:      obj.Path,
			Name:      path.Base(obj.Path),
			Size:      obj.Size,
			UpdatedAt: obj.UpdatedAt,
		}
		if row, ok := byPath[obj.Path]; ok {
			file.Name = row.OriginalName
			if row.Size > 0 {
				file.Size = row.Size
			}
			file.UploadedBy = row.UploadedBy
		}
		if info.Public {
			file.URL = s.provider.PublicURL(bucket, obj.Path)
		}
		files = append(files, file)
	}
	return files, nil
}

// SignedURL issues a time-limited URL for a private object.
func (s *Service) SignedURL(ctx context.Context, bucket, objectPath string, expires time.Duration) (string, error) {
	if _, ok := BucketInfo(bucket); !ok {
		return "", ErrUnknownBucket
	}
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return s.provider.SignedURL(ctx, bucket, objectPath, expires)
}

// SweepOrphans deletes orphaned metadata rows, re-issuing the object delete
// first since S3 deletes are idempotent. Returns the number of rows removed.
func (s *Service) SweepOrphans(ctx context.Context, limit int) (int, error) {
	rows, err := s.meta.ListOrphaned(ctx, limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, row := range rows {
		if err := s.provider.Delete(ctx, row.Bucket, row.Path); err != nil {
			if s.logger != nil {
				s.logger.Warn("orphan object delete failed",
					slog.String("bucket", row.Bucket), slog.String("path", row.Path), slog.Any("error", err))
			}
			continue
		}
		if err := s.meta.Delete(ctx, row.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			return swept, err
		}
		swept++
	}
	return swept, nil
}
