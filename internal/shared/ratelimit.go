package shared

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amlakhq/amlak/internal/platform/httpx"
)

// ErrRateLimited indicates the caller exhausted the allowed request window.
// It is the transport sentinel, so httpx.RespondError maps it to 429 without
// handlers translating it first.
var ErrRateLimited = httpx.ErrRateLimited

// RateLimiter enforces fixed-window request limits for public form
// submissions, keyed by caller identity and form type. When FailOpen is set
// a failing limiter check allows the action instead of blocking legitimate
// users behind a degraded Redis.
type RateLimiter struct {
	client   *redis.Client
	logger   *slog.Logger
	failOpen bool
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(client *redis.Client, logger *slog.Logger, failOpen bool) *RateLimiter {
	return &RateLimiter{client: client, logger: logger, failOpen: failOpen}
}

// Allow checks whether another request is permitted for the given identity
// and form type. It counts the current request: the call that crosses
// maxRequests is denied with ErrRateLimited.
func (rl *RateLimiter) Allow(ctx context.Context, identity, formType string, maxRequests int, window time.Duration) error {
	if rl == nil || rl.client == nil {
		return nil
	}
	if maxRequests <= 0 || window <= 0 {
		return nil
	}

	key := rl.key(identity, formType)
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		if rl.logger != nil {
			rl.logger.Warn("rate limit check failed", slog.String("key", key), slog.Any("error", err))
		}
		if rl.failOpen {
			return nil
		}
		return fmt.Errorf("shared/ratelimit: incr: %w", err)
	}
	if count == 1 {
		// First hit opens the window.
		if err := rl.client.Expire(ctx, key, window).Err(); err != nil && rl.logger != nil {
			rl.logger.Warn("rate limit expire failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	if count > int64(maxRequests) {
		return ErrRateLimited
	}
	return nil
}

func (rl *RateLimiter) key(identity, formType string) string {
	return "ratelimit:" + formType + ":" + identity
}
