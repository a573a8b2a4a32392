package security

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service records and queries security events. Recording failures are logged
// and swallowed: a broken audit trail must never block the guarded action.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// Log persists a security event and returns its identifier.
func (s *Service) Log(ctx context.Context, event Event) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, errors.New("security: service not initialised")
	}
	if event.EventType == "" {
		return 0, errors.New("security: event type required")
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO security_events (event_type, user_id, user_agent, metadata, severity, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW()) RETURNING id`,
		event.EventType, event.UserID, event.UserAgent, metaJSON, event.Severity).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LogBestEffort records an event without propagating failures to the caller.
func (s *Service) LogBestEffort(ctx context.Context, event Event) {
	if _, err := s.Log(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("security event dropped", slog.String("type", event.EventType), slog.Any("error", err))
	}
}

// Recent returns the latest events up to limit, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_type, user_id, COALESCE(user_agent, ''), metadata, severity, created_at
		 FROM security_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var ev Event
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.UserID, &ev.UserAgent, &metaJSON, &ev.Severity, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &ev.Metadata)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
