package shared

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/platform/httpx"
)

func limiterFixture(t *testing.T, failOpen bool) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRateLimiter(client, logger, failOpen), mr
}

func TestRateLimiterBoundary(t *testing.T) {
	rl, _ := limiterFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow(ctx, "203.0.113.7", "property_request", 3, time.Minute), "request %d inside the window must pass", i+1)
	}
	err := rl.Allow(ctx, "203.0.113.7", "property_request", 3, time.Minute)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRateLimiterWindowElapses(t *testing.T) {
	rl, mr := limiterFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow(ctx, "203.0.113.7", "property_request", 3, time.Minute))
	}
	require.ErrorIs(t, rl.Allow(ctx, "203.0.113.7", "property_request", 3, time.Minute), ErrRateLimited)

	mr.FastForward(61 * time.Second)
	assert.NoError(t, rl.Allow(ctx, "203.0.113.7", "property_request", 3, time.Minute))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl, _ := limiterFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, rl.Allow(ctx, "203.0.113.7", "property_request", 2, time.Minute))
	}
	require.ErrorIs(t, rl.Allow(ctx, "203.0.113.7", "property_request", 2, time.Minute), ErrRateLimited)

	// Different identity and different form type both get fresh windows.
	assert.NoError(t, rl.Allow(ctx, "203.0.113.8", "property_request", 2, time.Minute))
	assert.NoError(t, rl.Allow(ctx, "203.0.113.7", "contact", 2, time.Minute))
}

func TestRateLimiterFailOpenOnRedisError(t *testing.T) {
	rl, mr := limiterFixture(t, true)
	mr.Close()

	err := rl.Allow(context.Background(), "203.0.113.7", "property_request", 3, time.Minute)
	assert.NoError(t, err, "degraded redis must not block submissions when failing open")
}

func TestRateLimiterFailClosedOnRedisError(t *testing.T) {
	rl, mr := limiterFixture(t, false)
	mr.Close()

	err := rl.Allow(context.Background(), "203.0.113.7", "property_request", 3, time.Minute)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestRateLimitErrorMapsToTooManyRequests(t *testing.T) {
	rl, _ := limiterFixture(t, false)
	ctx := context.Background()

	require.NoError(t, rl.Allow(ctx, "203.0.113.7", "property_request", 1, time.Minute))
	err := rl.Allow(ctx, "203.0.113.7", "property_request", 1, time.Minute)
	require.ErrorIs(t, err, ErrRateLimited)

	// The limiter error is the transport sentinel, so the generic error
	// responder produces 429 without handler translation.
	rec := httptest.NewRecorder()
	httpx.RespondError(rec, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterZeroConfigIsNoop(t *testing.T) {
	rl, _ := limiterFixture(t, false)
	assert.NoError(t, rl.Allow(context.Background(), "203.0.113.7", "property_request", 0, time.Minute))
	assert.NoError(t, rl.Allow(context.Background(), "203.0.113.7", "property_request", 3, 0))
}
