package requests_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/requests"
	"github.com/amlakhq/amlak/internal/shared"
)

type memRequestsRepo struct {
	items map[int64]*requests.PropertyRequest
	next  int64
}

func newMemRequestsRepo() *memRequestsRepo {
	return &memRequestsRepo{items: make(map[int64]*requests.PropertyRequest)}
}

func (m *memRequestsRepo) List(context.Context, requests.Filter) ([]requests.PropertyRequest, int, error) {
	var out []requests.PropertyRequest
	for _, pr := range m.items {
		out = append(out, *pr)
	}
	return out, len(out), nil
}

func (m *memRequestsRepo) Get(_ context.Context, id int64) (*requests.PropertyRequest, error) {
	pr, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *pr
	return &copied, nil
}

func (m *memRequestsRepo) Create(_ context.Context, input requests.SubmitInput) (*requests.PropertyRequest, error) {
	m.next++
	pr := &requests.PropertyRequest{
		ID:          m.next,
		FullName:    input.FullName,
		Phone:       input.Phone,
		RequestType: input.RequestType,
		Status:      requests.StatusNew,
	}
	m.items[pr.ID] = pr
	copied := *pr
	return &copied, nil
}

func (m *memRequestsRepo) SetStatus(_ context.Context, id int64, status string) error {
	pr, ok := m.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	pr.Status = status
	return nil
}

func (m *memRequestsRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memRequestsRepo) CountPerWeek(context.Context, int) (map[string]int, error) {
	return map[string]int{}, nil
}

func publicRouterFixture(t *testing.T) (chi.Router, *memRequestsRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := shared.NewRateLimiter(client, logger, false)
	repo := newMemRequestsRepo()
	svc := requests.NewService(repo, limiter, nil, nil, logger)
	handler := requests.NewHandler(logger, svc, rbac.Middleware{Logger: logger})

	router := chi.NewRouter()
	router.Route("/public/requests", handler.MountPublicRoutes)
	return router, repo
}

func submit(t *testing.T, router chi.Router, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"full_name":"خالد العمري","phone":"+966500000001","request_type":"buy"}`
	req := httptest.NewRequest(http.MethodPost, "/public/requests/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPublicSubmitCreatesRequest(t *testing.T) {
	router, repo := publicRouterFixture(t)

	rec := submit(t, router, "203.0.113.7:51000")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.items, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "new", payload["status"])
}

func TestPublicSubmitRateLimited(t *testing.T) {
	router, repo := publicRouterFixture(t)

	for i := 0; i < 5; i++ {
		rec := submit(t, router, "203.0.113.7:51000")
		require.Equal(t, http.StatusCreated, rec.Code, "request %d should pass", i+1)
	}

	rec := submit(t, router, "203.0.113.7:51000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "تجاوزت الحد المسموح")
	assert.Len(t, repo.items, 5, "the denied submission must not reach the database")

	// A different caller still gets through.
	rec = submit(t, router, "203.0.113.8:51000")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPublicSubmitValidatesPayload(t *testing.T) {
	router, repo := publicRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/public/requests/",
		strings.NewReader(`{"full_name":"خ","phone":"12345","request_type":"lease"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.items)
}
