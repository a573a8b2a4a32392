package notifications

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// bumpChannel is published after inserts so connected clients re-fetch.
const bumpChannel = "notify.bump"

// Service implements notification fan-out.
type Service struct {
	repo   Repository
	client *redis.Client
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, client *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, client: client, logger: logger}
}

// Create stores a notification and signals subscribers. The pub/sub signal is
// best effort; the row is the source of truth.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Notification, error) {
	n, err := s.repo.Insert(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.client != nil {
		if err := s.client.Publish(ctx, bumpChannel, n.ID).Err(); err != nil && s.logger != nil {
			s.logger.Warn("notification bump publish failed", slog.Any("error", err))
		}
	}
	return n, nil
}

// ListForUser returns the user's notifications plus global ones.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// UnreadCount counts the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead flags a notification read for the user.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead flags every personal notification read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// ExpireSweep removes rows past their expiry, for the background job.
func (s *Service) ExpireSweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

// Subscribe opens the bump channel for long-lived consumers.
func (s *Service) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, bumpChannel)
}
