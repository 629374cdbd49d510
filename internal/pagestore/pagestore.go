// Package pagestore is the reference remote page store: the service layer
// between the HTTP API and the DuckDB page table.
package pagestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/Project-Sylos/Canopy/internal/db"
	"github.com/Project-Sylos/Canopy/internal/generator"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/google/uuid"
)

// PageUpdate carries the fields of a partial page update; nil fields are left unchanged
type PageUpdate struct {
	Title   *string
	Icon    *string
	Content *string
}

// Store manages pages for every space
type Store struct {
	db  *db.DB
	cfg *types.Config
	rng *generator.RNG
	now func() time.Time
}

// New opens the database named by cfg.Store.DBPath
func New(cfg *types.Config) (*Store, error) {
	database, err := db.New(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Store{
		db:  database,
		cfg: cfg,
		rng: generator.NewRNG(cfg.Seed.Seed),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// GetPage retrieves a page by ID
func (s *Store) GetPage(id string) (*types.Page, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}
	return s.db.GetPageByID(id)
}

// ListSidebar returns one batch of the children of params.ParentPageID
func (s *Store) ListSidebar(params types.SidebarPagesParams) (*types.PageList, error) {
	if params.SpaceID == "" {
		return nil, fmt.Errorf("%w: space id is required", types.ErrValidation)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.cfg.Store.PageSize
	}
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	if limit > types.MaxPageSize {
		limit = types.MaxPageSize
	}

	return s.db.ListChildren(params.SpaceID, params.ParentPageID, params.Page, limit)
}

// CreatePage stores a new page. A negative position appends it after its last
// sibling; otherwise siblings at or after the position move down by one.
func (s *Store) CreatePage(page *types.Page) (*types.Page, error) {
	title := strings.TrimSpace(page.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", types.ErrValidation)
	}
	if page.SpaceID == "" {
		return nil, fmt.Errorf("%w: space id is required", types.ErrValidation)
	}

	if page.ParentPageID != "" {
		parent, err := s.db.GetPageByID(page.ParentPageID)
		if err != nil {
			return nil, fmt.Errorf("%w: parent page %s: %v", types.ErrValidation, page.ParentPageID, err)
		}
		if parent.SpaceID != page.SpaceID {
			return nil, fmt.Errorf("%w: parent page %s belongs to space %s", types.ErrValidation, parent.ID, parent.SpaceID)
		}
	}

	position := page.Position
	if position < 0 {
		next, err := s.db.NextPosition(page.SpaceID, page.ParentPageID)
		if err != nil {
			return nil, err
		}
		position = next
	}

	now := s.now()
	created := &types.Page{
		ID:              uuid.New().String(),
		SpaceID:         page.SpaceID,
		ParentPageID:    page.ParentPageID,
		Title:           title,
		Icon:            page.Icon,
		Content:         page.Content,
		ContentChecksum: generator.ComputeChecksum([]byte(page.Content)),
		Position:        position,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.db.InsertPage(created); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return created, nil
}

// UpdatePage applies a partial update and returns the stored page
func (s *Store) UpdatePage(id string, update PageUpdate) (*types.Page, error) {
	page, err := s.GetPage(id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", types.ErrValidation)
		}
		page.Title = title
	}
	if update.Icon != nil {
		page.Icon = *update.Icon
	}
	if update.Content != nil {
		page.Content = *update.Content
		page.ContentChecksum = generator.ComputeChecksum([]byte(page.Content))
	}
	page.UpdatedAt = s.now()

	if err := s.db.UpdatePage(page); err != nil {
		return nil, err
	}
	return page, nil
}

// DeletePage deletes a page and its descendants, returning how many pages were removed
func (s *Store) DeletePage(id string) (int64, error) {
	if id == "" {
		return 0, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}
	return s.db.DeletePageTree(id)
}

// MovePage reparents a page within its space
func (s *Store) MovePage(req types.MovePageRequest) error {
	page, err := s.GetPage(req.PageID)
	if err != nil {
		return err
	}

	if req.ParentPageID != "" {
		if req.ParentPageID == page.ID {
			return fmt.Errorf("%w: page %s cannot be its own parent", types.ErrValidation, page.ID)
		}

		chain, err := s.db.GetAncestors(req.ParentPageID)
		if err != nil {
			return fmt.Errorf("%w: target parent %s: %v", types.ErrValidation, req.ParentPageID, err)
		}
		target := chain[len(chain)-1]
		if target.SpaceID != page.SpaceID {
			return fmt.Errorf("%w: target parent %s belongs to space %s", types.ErrValidation, target.ID, target.SpaceID)
		}
		for _, ancestor := range chain {
			if ancestor.ID == page.ID {
				return fmt.Errorf("%w: cannot move page %s under its descendant %s", types.ErrValidation, page.ID, target.ID)
			}
		}
	}

	position := req.Position
	if position < 0 {
		next, err := s.db.NextPosition(page.SpaceID, req.ParentPageID)
		if err != nil {
			return err
		}
		position = next
	}

	return s.db.MovePage(page.ID, req.ParentPageID, position, s.now())
}

// Breadcrumbs returns the ancestor chain of id, root first and ending with the page itself
func (s *Store) Breadcrumbs(id string) ([]types.Page, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}
	return s.db.GetAncestors(id)
}

// RecentChanges returns the most recently updated pages, optionally for one space
func (s *Store) RecentChanges(spaceID string) ([]types.Page, error) {
	return s.db.RecentPages(spaceID, types.RecentLimit)
}

// Seed generates a demo hierarchy in spaceID from the seed configuration and returns the number of pages
func (s *Store) Seed(spaceID string) (int, error) {
	if spaceID == "" {
		return 0, fmt.Errorf("%w: space id is required", types.ErrValidation)
	}

	pages, err := generator.GenerateTree(spaceID, s.cfg.Seed, s.rng, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to generate pages: %w", err)
	}
	if err := s.db.BulkInsertPages(pages); err != nil {
		return 0, fmt.Errorf("failed to insert generated pages: %w", err)
	}
	return len(pages), nil
}

// Reset deletes every page
func (s *Store) Reset() error {
	if err := s.db.DeleteAllPages(); err != nil {
		return fmt.Errorf("failed to delete all pages: %w", err)
	}

	// Reset random number generator with same seed for reproducibility
	s.rng = generator.NewRNG(s.cfg.Seed.Seed)

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetConfig returns the current configuration
func (s *Store) GetConfig() *types.Config {
	return s.cfg
}

// GetPageCount returns the number of pages in a space, or everywhere when spaceID is empty
func (s *Store) GetPageCount(spaceID string) (int, error) {
	return s.db.GetPageCount(spaceID)
}

// GetTableInfo returns page counts per space
func (s *Store) GetTableInfo() ([]types.TableInfo, error) {
	return s.db.GetTableInfo()
}
