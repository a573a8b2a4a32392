package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amlakhq/amlak/internal/auth"
	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

type memoryRepo struct {
	users    map[string]*auth.User
	sessions map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*auth.User), sessions: make(map[string]int64)}
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryRepo) CreateProfile(_ context.Context, email, fullName, phone, passwordHash string) (*auth.User, error) {
	if _, ok := m.users[email]; ok {
		return nil, auth.ErrEmailTaken
	}
	u := &auth.User{
		ID:           int64(len(m.users) + 1),
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         rbac.RoleClient,
		IsActive:     true,
	}
	m.users[email] = u
	copied := *u
	return &copied, nil
}

func (m *memoryRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *memoryRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type handlerFixture struct {
	repo     *memoryRepo
	sessions *shared.SessionManager
	router   chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "amlak_session", "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("test-secret")
	svc := auth.NewService(repo, nil)
	handler := auth.NewHandler(logger, svc, sessions, csrf)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	return &handlerFixture{repo: repo, sessions: sessions, router: router}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seedAccount(t *testing.T, repo *memoryRepo, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users[email] = &auth.User{
		ID:           7,
		Email:        email,
		FullName:     "وسيط عقاري",
		PasswordHash: string(hash),
		Role:         rbac.RoleAgent,
		IsActive:     true,
	}
}

func TestLoginReturnsProfile(t *testing.T) {
	f := newHandlerFixture(t)
	seedAccount(t, f.repo, "agent@example.com", "correct horse")

	rec := f.do(t, http.MethodPost, "/auth/login", `{"email":"agent@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "agent@example.com", payload["email"])
	assert.Equal(t, "agent", payload["role"])
	assert.Len(t, f.repo.sessions, 1)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newHandlerFixture(t)
	seedAccount(t, f.repo, "agent@example.com", "correct horse")

	rec := f.do(t, http.MethodPost, "/auth/login", `{"email":"agent@example.com","password":"battery staple"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.repo.sessions)
}

func TestLoginValidatesPayload(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterCreatesClientAccount(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", `{"email":"new@example.com","full_name":"عميل جديد","password":"long enough password"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "client", payload["role"])
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newHandlerFixture(t)
	seedAccount(t, f.repo, "dup@example.com", "correct horse")

	rec := f.do(t, http.MethodPost, "/auth/register", `{"email":"dup@example.com","full_name":"الثاني","password":"long enough password"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogoutRemovesSessionRecord(t *testing.T) {
	f := newHandlerFixture(t)
	seedAccount(t, f.repo, "agent@example.com", "correct horse")

	rec := f.do(t, http.MethodPost, "/auth/login", `{"email":"agent@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.repo.sessions, 1)

	// A fresh session is loaded per request; delete whatever session id was stored.
	rec = f.do(t, http.MethodPost, "/auth/logout", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFTokenIsStable(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var first map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first["csrf_token"])

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var second map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first["csrf_token"], second["csrf_token"])
}
