package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nongtiensonpro/yellowcat/pkg/httputil"
	"github.com/nongtiensonpro/yellowcat/pkg/pagination"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/service"
)

// RefDataHandler serves every reference-data collection. The collection is
// the {kind} path segment.
type RefDataHandler struct {
	service *service.RefDataService
	logger  *slog.Logger
}

// NewRefDataHandler creates a new reference-data HTTP handler.
func NewRefDataHandler(svc *service.RefDataService, logger *slog.Logger) *RefDataHandler {
	return &RefDataHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/admin/{kind}
func (h *RefDataHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), chi.URLParam(r, "kind"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/admin/{kind}/{id}
func (h *RefDataHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "kind"), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

// Create handles POST /api/v1/admin/{kind}
func (h *RefDataHandler) Create(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if !httputil.DecodeJSON(w, r, &values) {
		return
	}

	rec, err := h.service.Create(r.Context(), chi.URLParam(r, "kind"), values)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: rec})
}

// Update handles PUT /api/v1/admin/{kind}/{id}
func (h *RefDataHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var values map[string]any
	if !httputil.DecodeJSON(w, r, &values) {
		return
	}

	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "kind"), id, values)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

// Delete handles DELETE /api/v1/admin/{kind}/{id}
func (h *RefDataHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "kind"), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
