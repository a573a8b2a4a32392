package analytics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amlakhq/amlak/internal/platform/httpx"
	"github.com/amlakhq/amlak/internal/rbac"
)

// Handler exposes the dashboard aggregates.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.mw.RequireAny(rbac.PermAnalyticsRead)).Get("/dashboard", h.dashboard)
	r.With(h.mw.RequireAny(rbac.PermAnalyticsExport)).Get("/export", h.export)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

// export returns the raw aggregate payload as a download. Formatting beyond
// JSON is left to the consumer.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.json"`)
	httpx.JSON(w, http.StatusOK, dash)
}
