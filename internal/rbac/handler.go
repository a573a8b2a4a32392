package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amlakhq/amlak/internal/platform/httpx"
	"github.com/amlakhq/amlak/internal/shared"
)

// Handler exposes the permission catalog and the privileged assignment
// update path over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog", h.catalog)
	r.Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(PermSystemSettings))
		r.Get("/roles/{role}", h.rolePermissions)
		r.Put("/roles/{role}", h.updateRolePermissions)
	})
}

type catalogResponse struct {
	Roles      []RoleInfo            `json:"roles"`
	Categories []Category            `json:"categories"`
	Routes     map[string]Permission `json:"routes"`
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{
		Roles:      AllRoles(),
		Categories: Categories(),
		Routes:     RouteTable,
	})
}

type meResponse struct {
	Role        RoleInfo     `json:"role"`
	Permissions []Permission `json:"permissions"`
	IsAdmin     bool         `json:"is_admin"`
	IsManager   bool         `json:"is_manager"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	role, err := h.service.RoleOf(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.EffectivePermissions(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		Role:        Info(role),
		Permissions: perms,
		IsAdmin:     IsAdminRole(role),
		IsManager:   IsManagerRole(role),
	})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !ValidRole(role) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	perms, err := h.service.GetRolePermissions(r.Context(), role)
	if err != nil {
		h.logger.Error("role permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Assignment{Role: role, Permissions: perms})
}

type updateAssignmentRequest struct {
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) updateRolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !ValidRole(role) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	var req updateAssignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), role, req.Permissions); err != nil {
		h.logger.Error("update role permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, Assignment{Role: role, Permissions: req.Permissions})
}

func currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
