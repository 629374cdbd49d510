package handlers

import (
	"net/http"
	"strconv"

	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/go-chi/chi/v5"
)

// SidebarHandler serves paginated sidebar listings
type SidebarHandler struct {
	BaseHandler
	store *pagestore.Store
}

// NewSidebarHandler creates a new sidebar handler
func NewSidebarHandler(store *pagestore.Store) *SidebarHandler {
	return &SidebarHandler{
		store: store,
	}
}

// ListPages handles GET /spaces/{spaceID}/sidebar?parent_page_id=&page=&limit=
func (h *SidebarHandler) ListPages(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	params := types.SidebarPagesParams{
		SpaceID:      chi.URLParam(req, "spaceID"),
		ParentPageID: query.Get("parent_page_id"),
		Page:         1,
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.sendError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		params.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		params.Limit = limit
	}

	list, err := h.store.ListSidebar(params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	h.sendSuccess(w, "Sidebar pages retrieved successfully", list)
}
