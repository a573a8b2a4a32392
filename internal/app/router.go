package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/amlakhq/amlak/internal/analytics"
	"github.com/amlakhq/amlak/internal/auth"
	"github.com/amlakhq/amlak/internal/clients"
	"github.com/amlakhq/amlak/internal/leads"
	"github.com/amlakhq/amlak/internal/notifications"
	"github.com/amlakhq/amlak/internal/observability"
	"github.com/amlakhq/amlak/internal/properties"
	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/requests"
	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
	"github.com/amlakhq/amlak/internal/storage"
	"github.com/amlakhq/amlak/internal/users"
	"github.com/amlakhq/amlak/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	RBACHandler          *rbac.Handler
	UsersHandler         *users.Handler
	StorageHandler       *storage.Handler
	PropertiesHandler    *properties.Handler
	ClientsHandler       *clients.Handler
	LeadsHandler         *leads.Handler
	RequestsHandler      *requests.Handler
	NotificationsHandler *notifications.Handler
	AnalyticsHandler     *analytics.Handler
	SecurityHandler      *security.Handler
	JobsHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Anonymous visitors submit property requests here. Everything under
	// /api requires a signed-in session.
	if params.RequestsHandler != nil {
		r.Route("/public/requests", params.RequestsHandler.MountPublicRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.RBACHandler != nil {
			r.Route("/rbac", params.RBACHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.StorageHandler != nil {
			r.Route("/files", params.StorageHandler.MountRoutes)
		}
		if params.PropertiesHandler != nil {
			r.Route("/properties", params.PropertiesHandler.MountRoutes)
		}
		if params.ClientsHandler != nil {
			r.Route("/clients", params.ClientsHandler.MountRoutes)
		}
		if params.LeadsHandler != nil {
			r.Route("/leads", params.LeadsHandler.MountRoutes)
		}
		if params.RequestsHandler != nil {
			r.Route("/requests", params.RequestsHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
		if params.AnalyticsHandler != nil {
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
		if params.SecurityHandler != nil {
			r.Route("/security", params.SecurityHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
