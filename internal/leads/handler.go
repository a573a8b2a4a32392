package leads

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/amlakhq/amlak/internal/platform/httpx"
	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

// Handler exposes pipeline endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.mw.RequireAny(rbac.PermLeadsRead)).Get("/", h.list)
	r.With(h.mw.RequireAny(rbac.PermLeadsRead)).Get("/{id}", h.get)
	r.With(h.mw.RequireAny(rbac.PermLeadsCreate)).Post("/", h.create)
	r.With(h.mw.RequireAny(rbac.PermLeadsUpdate)).Put("/{id}", h.update)
	r.With(h.mw.RequireAny(rbac.PermLeadsUpdate)).Put("/{id}/stage", h.advance)
	r.With(h.mw.RequireAny(rbac.PermLeadsUpdate)).Put("/{id}/assign", h.assign)
	r.With(h.mw.RequireAny(rbac.PermLeadsDelete)).Delete("/{id}", h.delete)
}

type listResponse struct {
	Leads      []Lead            `json:"leads"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Query:    strings.TrimSpace(q.Get("q")),
		Stage:    q.Get("stage"),
		Page:     atoiDefault(q.Get("page"), 1),
		PageSize: atoiDefault(q.Get("page_size"), 20),
	}
	if raw := q.Get("assigned_to"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AssignedTo = &id
		}
	}
	if filter.Stage != "" && !ValidStage(filter.Stage) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown stage filter")
		return
	}

	items, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list leads", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Lead{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Leads: items, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get lead", err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	l, err := h.service.Create(r.Context(), actorID, input)
	if err != nil {
		h.respondError(w, "create lead", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	l, err := h.service.Update(r.Context(), actorID, id, input)
	if err != nil {
		h.respondError(w, "update lead", err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

type stageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req stageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.service.Advance(r.Context(), actorID, id, req.Stage); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type assignRequest struct {
	AgentID *int64 `json:"agent_id"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.service.Assign(r.Context(), actorID, id, req.AgentID); err != nil {
		h.respondError(w, "assign lead", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.respondError(w, "delete lead", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var input Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return Input{}, false
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "تحقق من بيانات الفرصة")
		return Input{}, false
	}
	return input, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
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
