package storage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amlakhq/amlak/internal/platform/httpx"
	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/shared"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// PermissionChecker resolves whether a principal holds a permission.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID int64, perm rbac.Permission) (bool, error)
}

// Handler exposes file endpoints. Guards come from the bucket catalog's
// default permission triples and are evaluated per request since the bucket
// is a path parameter.
type Handler struct {
	logger  *slog.Logger
	service *Service
	perms   PermissionChecker
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, perms PermissionChecker) *Handler {
	return &Handler{logger: logger, service: service, perms: perms}
}

// MountRoutes registers file routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/buckets", h.buckets)
	r.Get("/{bucket}", h.list)
	r.Post("/{bucket}", h.upload)
	r.Get("/{bucket}/signed-url", h.signedURL)
	r.Delete("/{bucket}/*", h.delete)
}

func (h *Handler) buckets(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, Buckets())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.authorize(w, r, readAction)
	if !ok {
		return
	}
	files, err := h.service.ListFiles(r.Context(), bucket.Name, r.URL.Query().Get("prefix"))
	if err != nil {
		h.logger.Error("list files", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if files == nil {
		files = []FileInfo{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.authorize(w, r, writeAction)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploaderID, _ := currentUserID(r)
	var uploadedBy *int64
	if uploaderID != 0 {
		uploadedBy = &uploaderID
	}
	upsert, _ := strconv.ParseBool(r.FormValue("upsert"))

	meta, err := h.service.Upload(r.Context(), UploadRequest{
		Bucket:       bucket.Name,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
		UploadedBy:   uploadedBy,
		PathPrefix:   r.FormValue("path"),
		CacheControl: r.FormValue("cache_control"),
		Upsert:       upsert,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidPrefix) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path prefix")
			return
		}
		h.logger.Error("upload", slog.String("bucket", bucket.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, meta)
}

func (h *Handler) signedURL(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.authorize(w, r, readAction)
	if !ok {
		return
	}
	objectPath := r.URL.Query().Get("path")
	if objectPath == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "path query parameter required")
		return
	}
	expires := 15 * time.Minute
	if raw := r.URL.Query().Get("expires_in"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 && secs <= 3600 {
			expires = time.Duration(secs) * time.Second
		}
	}
	url, err := h.service.SignedURL(r.Context(), bucket.Name, objectPath, expires)
	if err != nil {
		h.logger.Error("signed url", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.authorize(w, r, deleteAction)
	if !ok {
		return
	}
	objectPath := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if objectPath == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "object path required")
		return
	}
	if err := h.service.DeleteFile(r.Context(), bucket.Name, objectPath); err != nil {
		h.logger.Error("delete file", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bucketAction int

const (
	readAction bucketAction = iota
	writeAction
	deleteAction
)

// authorize resolves the bucket from the URL and enforces its default
// permission for the action. Resolver errors deny.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action bucketAction) (Bucket, bool) {
	bucket, ok := BucketInfo(chi.URLParam(r, "bucket"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return Bucket{}, false
	}
	var required rbac.Permission
	switch action {
	case writeAction:
		required = bucket.Write
	case deleteAction:
		required = bucket.Delete
	default:
		required = bucket.Read
	}

	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Bucket{}, false
	}
	allowed, err := h.perms.HasPermission(r.Context(), userID, required)
	if err != nil {
		h.logger.Error("bucket authorize", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Bucket{}, false
	}
	if !allowed {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Bucket{}, false
	}
	return bucket, true
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
