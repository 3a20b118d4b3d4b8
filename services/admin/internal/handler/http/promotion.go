package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nongtiensonpro/yellowcat/pkg/httputil"
	"github.com/nongtiensonpro/yellowcat/pkg/pagination"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/service"
)

// PromotionHandler handles HTTP requests for promotion endpoints.
type PromotionHandler struct {
	service *service.PromotionService
	logger  *slog.Logger
}

// NewPromotionHandler creates a new promotion HTTP handler.
func NewPromotionHandler(svc *service.PromotionService, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/admin/promotions
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/admin/promotions/{id}
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// Create handles POST /api/v1/admin/promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form domain.PromotionForm
	if !httputil.DecodeJSON(w, r, &form) {
		return
	}

	p, err := h.service.Create(r.Context(), form)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: p})
}

// Update handles PUT /api/v1/admin/promotions/{id}
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var form domain.PromotionForm
	if !httputil.DecodeJSON(w, r, &form) {
		return
	}

	p, err := h.service.Update(r.Context(), id, form)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// Delete handles DELETE /api/v1/admin/promotions/{id}
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /api/v1/admin/promotions/preview
func (h *PromotionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var in service.PreviewInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	preview, err := h.service.Preview(in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: preview})
}
