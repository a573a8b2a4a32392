package storage

import (
	"context"
	"io"
	"time"
)

// Object is a storage-side listing entry.
type Object struct {
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadInput carries a pending object upload. Upsert false asks the store
// to reject the write when the key already exists.
type UploadInput struct {
	Bucket       string
	Path         string
	ContentType  string
	CacheControl string
	Upsert       bool
	Body         io.Reader
}

// Provider abstracts the object store. Implementations must be safe for
// concurrent use.
type Provider interface {
	Upload(ctx context.Context, input UploadInput) (Object, error)
	Delete(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
	SignedURL(ctx context.Context, bucket, path string, expires time.Duration) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}
