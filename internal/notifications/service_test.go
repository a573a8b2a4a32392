package notifications

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/shared"
)

type stubNotificationsRepo struct {
	rows    map[int64]*Notification
	next    int64
	expired int64
}

func newStubNotificationsRepo() *stubNotificationsRepo {
	return &stubNotificationsRepo{rows: make(map[int64]*Notification)}
}

func (s *stubNotificationsRepo) Insert(_ context.Context, input CreateInput) (*Notification, error) {
	s.next++
	typ := input.Type
	if typ == "" {
		typ = TypeInfo
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	n := &Notification{
		ID: s.next, UserID: input.UserID, Type: typ, Priority: priority,
		Title: input.Title, Message: input.Message, ExpiresAt: input.ExpiresAt,
		CreatedAt: time.Now(),
	}
	s.rows[n.ID] = n
	copied := *n
	return &copied, nil
}

func (s *stubNotificationsRepo) ListForUser(_ context.Context, userID int64, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range s.rows {
		if n.UserID == nil || *n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *stubNotificationsRepo) UnreadCount(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range s.rows {
		if (n.UserID == nil || *n.UserID == userID) && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *stubNotificationsRepo) MarkRead(_ context.Context, userID, id int64) error {
	n, ok := s.rows[id]
	if !ok || n.UserID == nil || *n.UserID != userID || n.ReadAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	n.ReadAt = &now
	return nil
}

func (s *stubNotificationsRepo) MarkAllRead(_ context.Context, userID int64) error {
	now := time.Now()
	for _, n := range s.rows {
		if n.UserID != nil && *n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
		}
	}
	return nil
}

func (s *stubNotificationsRepo) DeleteExpired(_ context.Context) (int64, error) {
	var removed int64
	now := time.Now()
	for id, n := range s.rows {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			delete(s.rows, id)
			removed++
		}
	}
	s.expired += removed
	return removed, nil
}

func serviceFixture(t *testing.T) (*Service, *stubNotificationsRepo, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newStubNotificationsRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, client, logger), repo, client
}

func TestCreatePublishesBump(t *testing.T) {
	svc, _, _ := serviceFixture(t)
	ctx := context.Background()

	sub := svc.Subscribe(ctx)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	user := int64(5)
	n, err := svc.Create(ctx, CreateInput{UserID: &user, Title: "تم استلام طلبك"})
	require.NoError(t, err)
	assert.Equal(t, TypeInfo, n.Type)
	assert.Equal(t, PriorityNormal, n.Priority)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "notify.bump", msg.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a bump message after create")
	}
}

func TestGlobalNotificationVisibleToEveryone(t *testing.T) {
	svc, _, _ := serviceFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Title: "صيانة مجدولة", Type: TypeWarning})
	require.NoError(t, err)

	for _, userID := range []int64{1, 2} {
		items, err := svc.ListForUser(ctx, userID, 10)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
}

func TestMarkReadAffectsOnlyOwner(t *testing.T) {
	svc, repo, _ := serviceFixture(t)
	ctx := context.Background()

	owner := int64(5)
	n, err := svc.Create(ctx, CreateInput{UserID: &owner, Title: "عقار جديد"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, 6, n.ID), shared.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, owner, n.ID))
	assert.NotNil(t, repo.rows[n.ID].ReadAt)

	count, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExpireSweepRemovesOldRows(t *testing.T) {
	svc, repo, _ := serviceFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	user := int64(5)
	_, err := svc.Create(ctx, CreateInput{UserID: &user, Title: "منتهي", ExpiresAt: &past})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{UserID: &user, Title: "قائم"})
	require.NoError(t, err)

	removed, err := svc.ExpireSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, repo.rows, 1)
}
