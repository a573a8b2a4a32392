package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
)

type stubAuthRepo struct {
	users    map[string]*User
	sessions map[string]int64
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*User), sessions: make(map[string]int64)}
}

func (s *stubAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubAuthRepo) CreateProfile(_ context.Context, email, fullName, phone, passwordHash string) (*User, error) {
	if _, ok := s.users[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &User{
		ID:           int64(len(s.users) + 1),
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         rbac.RoleClient,
		IsActive:     true,
	}
	s.users[email] = u
	copied := *u
	return &copied, nil
}

func (s *stubAuthRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubAuthRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type recordingEvents struct {
	events []security.Event
}

func (r *recordingEvents) LogBestEffort(_ context.Context, event security.Event) {
	r.events = append(r.events, event)
}

func seedUser(t *testing.T, repo *stubAuthRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		FullName:     "مستخدم تجريبي",
		PasswordHash: string(hash),
		Role:         rbac.RoleAgent,
		IsActive:     active,
	}
	repo.users[email] = u
	return u
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newStubAuthRepo()
	events := &recordingEvents{}
	seedUser(t, repo, "agent@example.com", "correct horse", true)

	svc := NewService(repo, events)
	user, err := svc.Authenticate(context.Background(), "agent@example.com", "correct horse", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAgent, user.Role)

	require.Len(t, events.events, 1)
	assert.Equal(t, security.EventLoginSucceeded, events.events[0].EventType)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newStubAuthRepo()
	events := &recordingEvents{}
	seedUser(t, repo, "agent@example.com", "correct horse", true)

	svc := NewService(repo, events)
	_, err := svc.Authenticate(context.Background(), "agent@example.com", "battery staple", "test-agent")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.Len(t, events.events, 1)
	assert.Equal(t, security.EventLoginFailed, events.events[0].EventType)
	assert.Equal(t, security.SeverityWarning, events.events[0].Severity)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	repo := newStubAuthRepo()
	events := &recordingEvents{}

	svc := NewService(repo, events)
	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever1", "test-agent")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Len(t, events.events, 1)
	assert.Nil(t, events.events[0].UserID)
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	repo := newStubAuthRepo()
	events := &recordingEvents{}
	seedUser(t, repo, "former@example.com", "correct horse", false)

	svc := NewService(repo, events)
	_, err := svc.Authenticate(context.Background(), "former@example.com", "correct horse", "test-agent")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterDefaultsToClientRole(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewService(repo, nil)

	user, err := svc.Register(context.Background(), "new@example.com", "عميل جديد", "", "long enough password")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleClient, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "long enough password", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewService(repo, nil)

	_, err := svc.Register(context.Background(), "dup@example.com", "الأول", "", "long enough password")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "dup@example.com", "الثاني", "", "long enough password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}
