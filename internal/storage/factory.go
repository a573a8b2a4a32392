package storage

import (
	"context"
	"fmt"
)

// NewProvider constructs the configured Provider implementation.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "s3":
		return NewS3Provider(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
