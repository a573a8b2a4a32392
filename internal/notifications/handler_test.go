package notifications

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

func handlerFixture(t *testing.T) (*Handler, *Service, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(newStubNotificationsRepo(), client, logger)
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	return NewHandler(logger, svc, rbac.Middleware{Logger: logger}), svc, sm
}

func pollRequest(t *testing.T, sm *shared.SessionManager, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/poll", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestPollReportsUpdateOnNewNotification(t *testing.T) {
	h, svc, sm := handlerFixture(t)
	r := chi.NewRouter()
	h.MountRoutes(r)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, pollRequest(t, sm, "5"))
		done <- rec
	}()

	// Publish repeatedly: the held request subscribes asynchronously, so the
	// first bump can land before its subscription is registered.
	user := int64(5)
	deadline := time.After(5 * time.Second)
	for {
		_, err := svc.Create(context.Background(), CreateInput{UserID: &user, Title: "عرض جديد"})
		require.NoError(t, err)
		select {
		case rec := <-done:
			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Updated bool `json:"updated"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Updated)
			return
		case <-deadline:
			t.Fatal("held poll never observed the new notification")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestPollRequiresSession(t *testing.T) {
	h, _, _ := handlerFixture(t)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/poll", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
