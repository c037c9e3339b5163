package extensions

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/hubcap/pkg/httputil"
	"github.com/platinummonkey/hubcap/pkg/identity"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/search"
)

// Handler exposes the lifecycle service over HTTP
type Handler struct {
	service  *Service
	searcher search.Searcher
	logger   *observability.Logger
}

// NewHandler creates the HTTP handler. searcher may be nil, in which case the
// search endpoint serves empty results.
func NewHandler(service *Service, searcher search.Searcher, logger *observability.Logger) *Handler {
	return &Handler{service: service, searcher: searcher, logger: logger}
}

// RegisterRoutes attaches all lifecycle routes under /api/v1
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/uploads", h.CreateUpload).Methods(http.MethodPost)
	api.HandleFunc("/uploads/{id}", h.GetUpload).Methods(http.MethodGet)

	api.HandleFunc("/extensions", h.CreateExtension).Methods(http.MethodPost)
	api.HandleFunc("/extensions/{slug}", h.GetExtension).Methods(http.MethodGet)
	api.HandleFunc("/extensions/{slug}", h.UpdateExtension).Methods(http.MethodPatch)
	api.HandleFunc("/extensions/{slug}", h.DeleteExtension).Methods(http.MethodDelete)
	api.HandleFunc("/extensions/{slug}/versions", h.AddVersion).Methods(http.MethodPost)
	api.HandleFunc("/extensions/{slug}/versions", h.ListVersions).Methods(http.MethodGet)
	api.HandleFunc("/extensions/{slug}/block", h.Block).Methods(http.MethodPost)
	api.HandleFunc("/extensions/{slug}/unblock", h.Unblock).Methods(http.MethodPost)
	api.HandleFunc("/extensions/{slug}/manifest.json", h.GetManifest).Methods(http.MethodGet)
	api.HandleFunc("/extensions/{slug}/reviewers/manifest.json", h.GetReviewerManifest).Methods(http.MethodGet)

	api.HandleFunc("/versions/{id:[0-9]+}", h.GetVersion).Methods(http.MethodGet)
	api.HandleFunc("/versions/{id:[0-9]+}", h.DeleteVersion).Methods(http.MethodDelete)
	api.HandleFunc("/versions/{id:[0-9]+}/publish", h.Publish).Methods(http.MethodPost)
	api.HandleFunc("/versions/{id:[0-9]+}/reject", h.Reject).Methods(http.MethodPost)
	api.HandleFunc("/versions/{id:[0-9]+}/download", h.DownloadSigned).Methods(http.MethodGet)
	api.HandleFunc("/versions/{id:[0-9]+}/download/unsigned", h.DownloadUnsigned).Methods(http.MethodGet)

	api.HandleFunc("/reviewers/queue", h.ReviewQueue).Methods(http.MethodGet)
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
}

// uploadBody extracts the archive from the request: a multipart "upload"
// field when present, otherwise the raw body
func uploadBody(r *http.Request) (io.Reader, string, error) {
	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		file, header, err := r.FormFile("upload")
		if err != nil {
			return nil, "", err
		}
		return file, header.Filename, nil
	}
	return r.Body, r.Header.Get("X-Filename"), nil
}

// CreateUpload handles POST /api/v1/uploads
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())

	body, filename, err := uploadBody(r)
	if err != nil {
		httputil.WriteValidationError(w, "missing upload file")
		return
	}

	u, err := h.service.CreateUpload(r.Context(), caller, filename, body)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteCreated(w, u)
}

// GetUpload handles GET /api/v1/uploads/{id}. Only the owner sees it.
func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUpload(r.Context(), caller, id)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

// CreateExtension handles POST /api/v1/extensions
func (h *Handler) CreateExtension(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())

	var req CreateExtensionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UploadID, "upload_id") {
		return
	}

	ext, v, err := h.service.CreateExtension(r.Context(), caller, req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteCreated(w, map[string]interface{}{
		"extension": ext,
		"version":   v,
	})
}

// GetExtension handles GET /api/v1/extensions/{slug}
func (h *Handler) GetExtension(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, ext)
}

type updateExtensionRequest struct {
	Slug     *string `json:"slug,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

// UpdateExtension handles PATCH /api/v1/extensions/{slug}
func (h *Handler) UpdateExtension(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	var req updateExtensionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	updated, err := h.service.UpdateExtension(r.Context(), caller, ext.ID, ExtensionPatch{
		Slug:     req.Slug,
		Disabled: req.Disabled,
	})
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// DeleteExtension handles DELETE /api/v1/extensions/{slug}
func (h *Handler) DeleteExtension(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteExtension(r.Context(), caller, ext.ID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteNoContent(w)
}

type addVersionRequest struct {
	UploadID string `json:"upload_id"`
	Message  string `json:"message,omitempty"`
}

// AddVersion handles POST /api/v1/extensions/{slug}/versions
func (h *Handler) AddVersion(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	var req addVersionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UploadID, "upload_id") {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	v, err := h.service.AddVersion(r.Context(), caller, ext.ID, req.UploadID, req.Message)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteCreated(w, v)
}

// ListVersions handles GET /api/v1/extensions/{slug}/versions
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	versions, err := h.service.ListVersions(r.Context(), caller, ext.ID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"versions": versions})
}

// GetVersion handles GET /api/v1/versions/{id}
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	v, _, err := h.service.GetVersion(r.Context(), caller, id)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, v)
}

// DeleteVersion handles DELETE /api/v1/versions/{id}
func (h *Handler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteVersion(r.Context(), caller, id); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteNoContent(w)
}

// reviewActionRequest is the optional body of publish and reject calls; the
// note travels on the emitted lifecycle event
type reviewActionRequest struct {
	Message string `json:"message,omitempty"`
}

// Publish handles POST /api/v1/versions/{id}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req reviewActionRequest
	if err := httputil.ParseOptionalJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	v, err := h.service.Publish(r.Context(), caller, id, req.Message)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, v)
}

// Reject handles POST /api/v1/versions/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req reviewActionRequest
	if err := httputil.ParseOptionalJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	v, err := h.service.Reject(r.Context(), caller, id, req.Message)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, v)
}

// Block handles POST /api/v1/extensions/{slug}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.setExtensionBlock(w, r, true)
}

// Unblock handles POST /api/v1/extensions/{slug}/unblock
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setExtensionBlock(w, r, false)
}

func (h *Handler) setExtensionBlock(w http.ResponseWriter, r *http.Request, block bool) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	ext, err := h.service.GetExtension(r.Context(), caller, slug)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var updated *Extension
	if block {
		updated, err = h.service.Block(r.Context(), caller, ext.ID)
	} else {
		updated, err = h.service.Unblock(r.Context(), caller, ext.ID)
	}
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// GetManifest handles GET /api/v1/extensions/{slug}/manifest.json with ETag
// revalidation
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	h.serveManifest(w, r, false)
}

// GetReviewerManifest handles GET /api/v1/extensions/{slug}/reviewers/manifest.json
func (h *Handler) GetReviewerManifest(w http.ResponseWriter, r *http.Request) {
	h.serveManifest(w, r, true)
}

func (h *Handler) serveManifest(w http.ResponseWriter, r *http.Request, reviewer bool) {
	caller := identity.FromContext(r.Context())
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	var (
		m     *Manifest
		token string
		err   error
	)
	if reviewer {
		m, token, err = h.service.GetReviewerManifest(r.Context(), caller, slug)
	} else {
		m, token, err = h.service.GetManifest(r.Context(), caller, slug)
	}
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	etag := `"` + token + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	httputil.WriteSuccess(w, m)
}

// DownloadSigned handles GET /api/v1/versions/{id}/download
func (h *Handler) DownloadSigned(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, false)
}

// DownloadUnsigned handles GET /api/v1/versions/{id}/download/unsigned
func (h *Handler) DownloadUnsigned(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, true)
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, unsigned bool) {
	caller := identity.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var (
		rc   io.ReadCloser
		etag string
		err  error
	)
	if unsigned {
		rc, err = h.service.DownloadUnsigned(r.Context(), caller, id)
	} else {
		rc, etag, err = h.service.DownloadSigned(r.Context(), caller, id)
	}
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	defer rc.Close()

	if etag != "" {
		w.Header().Set("ETag", `"`+etag+`"`)
	}
	w.Header().Set("Content-Type", "application/zip")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WithError(err).Warn("artifact stream interrupted")
	}
}

// ReviewQueue handles GET /api/v1/reviewers/queue
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	includeDeleted, err := httputil.ParseQueryBool(r, "include_deleted", false)
	if err != nil {
		httputil.WriteValidationError(w, "invalid include_deleted")
		return
	}

	entries, err := h.service.ReviewQueue(r.Context(), caller, includeDeleted)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"queue": entries})
}

// Search handles GET /api/v1/search. Unprivileged callers only see public,
// non-deleted documents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())

	limit, err := httputil.ParseQueryInt(r, "limit", 25)
	if err != nil || limit < 0 {
		httputil.WriteValidationError(w, "invalid limit")
		return
	}
	q := search.Query{
		Term:   httputil.ParseQueryString(r, "q", ""),
		Status: httputil.ParseQueryString(r, "status", ""),
		Limit:  limit,
	}
	if !caller.IsReviewer() {
		q.Status = string(StatusPublic)
		q.IncludeDeleted = false
	} else {
		includeDeleted, err := httputil.ParseQueryBool(r, "include_deleted", false)
		if err != nil {
			httputil.WriteValidationError(w, "invalid include_deleted")
			return
		}
		q.IncludeDeleted = includeDeleted
	}

	var docs []search.Document
	if h.searcher != nil {
		docs = h.searcher.Search(r.Context(), q)
	}
	if docs == nil {
		docs = []search.Document{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"results": docs})
}
