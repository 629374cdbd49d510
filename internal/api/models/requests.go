package models

import (
	"fmt"
	"strings"

	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/Project-Sylos/Canopy/internal/types"
)

// CreatePageRequest represents the request to create a new page.
// A missing position appends the page after its last sibling.
type CreatePageRequest struct {
	SpaceID      string `json:"space_id"`
	ParentPageID string `json:"parent_page_id"`
	Title        string `json:"title"`
	Icon         string `json:"icon"`
	Content      string `json:"content"`
	Position     *int   `json:"position,omitempty"`
}

// Validate checks the required fields
func (r *CreatePageRequest) Validate() error {
	if r.SpaceID == "" {
		return fmt.Errorf("%w: space_id is required", types.ErrValidation)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", types.ErrValidation)
	}
	return nil
}

// Page converts the request into the page handed to the store
func (r *CreatePageRequest) Page() *types.Page {
	position := -1
	if r.Position != nil {
		position = *r.Position
	}
	return &types.Page{
		SpaceID:      r.SpaceID,
		ParentPageID: r.ParentPageID,
		Title:        r.Title,
		Icon:         r.Icon,
		Content:      r.Content,
		Position:     position,
	}
}

// UpdatePageRequest represents a partial page update; omitted fields are unchanged
type UpdatePageRequest struct {
	Title   *string `json:"title,omitempty"`
	Icon    *string `json:"icon,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Validate rejects an explicitly empty title
func (r *UpdatePageRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", types.ErrValidation)
	}
	return nil
}

// Update converts the request into a store update
func (r *UpdatePageRequest) Update() pagestore.PageUpdate {
	return pagestore.PageUpdate{
		Title:   r.Title,
		Icon:    r.Icon,
		Content: r.Content,
	}
}

// MovePageRequest represents the request to move a page under a new parent.
// An empty parent_page_id moves the page to the root level.
type MovePageRequest struct {
	ParentPageID string `json:"parent_page_id"`
	Position     *int   `json:"position,omitempty"`
}

// Request builds the store request for pageID
func (r *MovePageRequest) Request(pageID string) types.MovePageRequest {
	position := -1
	if r.Position != nil {
		position = *r.Position
	}
	return types.MovePageRequest{
		PageID:       pageID,
		ParentPageID: r.ParentPageID,
		Position:     position,
	}
}

// SeedRequest represents the request to generate a demo space
type SeedRequest struct {
	SpaceID string `json:"space_id"`
}
