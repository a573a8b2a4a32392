package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
)

// SecurityLogger records authentication related security events.
type SecurityLogger interface {
	LogBestEffort(ctx context.Context, event security.Event)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	events SecurityLogger
}

// NewService constructs a new Service.
func NewService(repo Repository, events SecurityLogger) *Service {
	return &Service{repo: repo, events: events}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password, userAgent string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.recordFailure(ctx, nil, userAgent, "unknown email")
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordFailure(ctx, &user.ID, userAgent, "deactivated account")
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, &user.ID, userAgent, "bad password")
		return nil, shared.ErrInvalidCredentials
	}
	if s.events != nil {
		s.events.LogBestEffort(ctx, security.Event{
			EventType: security.EventLoginSucceeded,
			UserID:    &user.ID,
			UserAgent: userAgent,
		})
	}
	return user, nil
}

// Register creates a profile at the client tier.
func (s *Service) Register(ctx context.Context, email, fullName, phone, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateProfile(ctx, email, fullName, phone, string(hash))
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) recordFailure(ctx context.Context, userID *int64, userAgent, reason string) {
	if s.events == nil {
		return
	}
	s.events.LogBestEffort(ctx, security.Event{
		EventType: security.EventLoginFailed,
		UserID:    userID,
		UserAgent: userAgent,
		Metadata:  map[string]any{"reason": reason},
		Severity:  security.SeverityWarning,
	})
}
