package notifications

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amlakhq/amlak/internal/shared"
)

// Repository defines persistence operations for notifications.
type Repository interface {
	Insert(ctx context.Context, input CreateInput) (*Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = `id, user_id, type, priority, title, COALESCE(message, ''),
	COALESCE(action_url, ''), metadata, read_at, expires_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var metaJSON []byte
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Priority, &n.Title, &n.Message,
		&n.ActionURL, &metaJSON, &n.ReadAt, &n.ExpiresAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &n.Metadata)
	}
	return &n, nil
}

// Insert stores a notification.
func (r *PGRepository) Insert(ctx context.Context, input CreateInput) (*Notification, error) {
	if input.Type == "" {
		input.Type = TypeInfo
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	}
	metaJSON, err := json.Marshal(input.Metadata)
	if err != nil {
		return nil, err
	}
	return scanNotification(r.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, priority, title, message, action_url, metadata, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, NOW())
		 RETURNING `+notificationColumns,
		input.UserID, input.Type, input.Priority, input.Title, input.Message, input.ActionURL, metaJSON, input.ExpiresAt))
}

// ListForUser returns the user's notifications plus global ones, newest
// first, skipping expired rows.
func (r *PGRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE (user_id = $1 OR user_id IS NULL)
		   AND (expires_at IS NULL OR expires_at > NOW())
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// UnreadCount counts unread, unexpired notifications for a user.
func (r *PGRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications
		 WHERE (user_id = $1 OR user_id IS NULL)
		   AND read_at IS NULL
		   AND (expires_at IS NULL OR expires_at > NOW())`, userID).Scan(&n)
	return n, err
}

// MarkRead flags one notification read. Global rows stay unread for other
// users so only personal rows are updated.
func (r *PGRepository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every personal notification read.
func (r *PGRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	return err
}

// DeleteExpired removes rows past their expiry. Returns the count removed.
func (r *PGRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
