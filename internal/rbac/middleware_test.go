package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

type agentRepo struct{}

func (agentRepo) UserRole(ctx context.Context, userID int64) (rbac.Role, bool, error) {
	return rbac.RoleAgent, true, nil
}

func (agentRepo) RolePermissions(ctx context.Context, role rbac.Role) ([]string, error) {
	// Agents may read and edit listings but never delete them.
	return []string{"properties:read", "properties:create", "properties:update"}, nil
}

func (agentRepo) ReplaceRolePermissions(ctx context.Context, role rbac.Role, perms []string) error {
	return nil
}

func requestWithUser(t *testing.T, sm *shared.SessionManager, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, "/properties/42", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestAgentCannotReachDeleteHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	svc := rbac.NewService(agentRepo{}, rbac.NewCache(client, time.Minute))
	mw := rbac.Middleware{Service: svc}

	deleteCalled := false
	handler := mw.RequireAll(rbac.PermPropertiesDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deleteCalled = true
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, sm, "9"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if deleteCalled {
		t.Fatal("delete handler must not run for an agent")
	}
}

func TestAgentPassesReadGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	svc := rbac.NewService(agentRepo{}, rbac.NewCache(client, time.Minute))
	mw := rbac.Middleware{Service: svc}

	handler := mw.RequireAny(rbac.PermPropertiesRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, sm, "9"))

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestAnonymousIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc := rbac.NewService(agentRepo{}, rbac.NewCache(client, time.Minute))
	mw := rbac.Middleware{Service: svc}

	handler := mw.RequireAny(rbac.PermPropertiesRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous caller, got %d", res.Code)
	}
}
