package handlers

import (
	"fmt"
	"net/http"

	"github.com/Project-Sylos/Canopy/internal/api/models"
	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/go-chi/chi/v5"
)

// PageHandler handles page endpoints
type PageHandler struct {
	BaseHandler
	store *pagestore.Store
}

// NewPageHandler creates a new page handler
func NewPageHandler(store *pagestore.Store) *PageHandler {
	return &PageHandler{
		store: store,
	}
}

// CreatePage handles the create page endpoint
func (h *PageHandler) CreatePage(w http.ResponseWriter, req *http.Request) {
	var request models.CreatePageRequest
	if !h.decodeJSON(w, req, &request) {
		return
	}
	if err := request.Validate(); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.store.CreatePage(request.Page())
	if err != nil {
		h.sendStoreError(w, fmt.Errorf("failed to create page: %w", err))
		return
	}

	h.sendJSON(w, http.StatusCreated, types.APIResponse{
		Success: true,
		Message: "Page created successfully",
		Data:    page,
	})
}

// GetPage handles the get page endpoint
func (h *PageHandler) GetPage(w http.ResponseWriter, req *http.Request) {
	page, err := h.store.GetPage(chi.URLParam(req, "id"))
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Page retrieved successfully", page)
}

// UpdatePage handles the partial update endpoint
func (h *PageHandler) UpdatePage(w http.ResponseWriter, req *http.Request) {
	var request models.UpdatePageRequest
	if !h.decodeJSON(w, req, &request) {
		return
	}
	if err := request.Validate(); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.store.UpdatePage(chi.URLParam(req, "id"), request.Update())
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Page updated successfully", page)
}

// DeletePage handles the delete endpoint; descendants are deleted with the page
func (h *PageHandler) DeletePage(w http.ResponseWriter, req *http.Request) {
	deleted, err := h.store.DeletePage(chi.URLParam(req, "id"))
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Page deleted successfully", map[string]any{"deleted": deleted})
}

// MovePage handles the move endpoint
func (h *PageHandler) MovePage(w http.ResponseWriter, req *http.Request) {
	var request models.MovePageRequest
	if !h.decodeJSON(w, req, &request) {
		return
	}

	if err := h.store.MovePage(request.Request(chi.URLParam(req, "id"))); err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Page moved successfully", nil)
}

// GetBreadcrumbs handles the breadcrumbs endpoint
func (h *PageHandler) GetBreadcrumbs(w http.ResponseWriter, req *http.Request) {
	crumbs, err := h.store.Breadcrumbs(chi.URLParam(req, "id"))
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Breadcrumbs retrieved successfully", crumbs)
}

// GetRecentChanges handles the recent changes endpoint
func (h *PageHandler) GetRecentChanges(w http.ResponseWriter, req *http.Request) {
	pages, err := h.store.RecentChanges(req.URL.Query().Get("space_id"))
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Recent changes retrieved successfully", pages)
}
