package handlers

import (
	"fmt"
	"net/http"

	"github.com/Project-Sylos/Canopy/internal/api/models"
	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/go-chi/chi/v5"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	BaseHandler
	store *pagestore.Store
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(store *pagestore.Store) *SystemHandler {
	return &SystemHandler{
		store: store,
	}
}

// Reset handles the reset endpoint
func (h *SystemHandler) Reset(w http.ResponseWriter, req *http.Request) {
	if err := h.store.Reset(); err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to reset page store: %v", err))
		return
	}

	h.sendSuccess(w, "Page store reset successfully", nil)
}

// Seed handles the seed endpoint
func (h *SystemHandler) Seed(w http.ResponseWriter, req *http.Request) {
	var request models.SeedRequest
	if !h.decodeJSON(w, req, &request) {
		return
	}

	count, err := h.store.Seed(request.SpaceID)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Space seeded successfully", map[string]any{
		"space_id": request.SpaceID,
		"count":    count,
	})
}

// GetSpaces handles the get spaces endpoint
func (h *SystemHandler) GetSpaces(w http.ResponseWriter, req *http.Request) {
	spaces, err := h.store.GetTableInfo()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get space info: %v", err))
		return
	}

	h.sendSuccess(w, "Spaces retrieved successfully", spaces)
}

// GetSpaceCount handles the get space count endpoint
func (h *SystemHandler) GetSpaceCount(w http.ResponseWriter, req *http.Request) {
	spaceID := chi.URLParam(req, "spaceID")
	if spaceID == "" {
		h.sendError(w, http.StatusBadRequest, "space id is required")
		return
	}

	count, err := h.store.GetPageCount(spaceID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get page count: %v", err))
		return
	}

	response := map[string]any{
		"space_id": spaceID,
		"count":    count,
	}

	h.sendSuccess(w, "Page count retrieved successfully", response)
}

// GetConfig handles the get config endpoint
func (h *SystemHandler) GetConfig(w http.ResponseWriter, req *http.Request) {
	config := h.store.GetConfig()
	h.sendSuccess(w, "Config retrieved successfully", config)
}
