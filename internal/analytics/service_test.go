package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls int
}

func (c *countingRepo) PropertyCountsByStatus(context.Context) (map[string]int, error) {
	return map[string]int{"available": 12, "sold": 3}, nil
}

func (c *countingRepo) LeadCountsByStage(context.Context) (map[string]int, error) {
	return map[string]int{"new": 4, "won": 1}, nil
}

func (c *countingRepo) RequestsPerWeek(context.Context, int) (map[string]int, error) {
	return map[string]int{"2026-35": 9}, nil
}

func (c *countingRepo) Totals(context.Context) (Totals, error) {
	c.calls++
	return Totals{Properties: 15, Clients: 40, Leads: 5, Requests: 9, ActiveUsers: 6}, nil
}

func cacheFixture(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestDashboardIsCached(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, cacheFixture(t))
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, first.Totals.Properties)
	assert.Equal(t, 12, first.PropertiesByStatus["available"])

	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second read must hit the cache")
}

func TestInvalidateForcesRecompute(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, cacheFixture(t))
	ctx := context.Background()

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "bumped version must bypass stale entries")
}
