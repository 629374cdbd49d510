package pagecache

import (
	"context"
	"fmt"

	"github.com/Project-Sylos/Canopy/internal/types"
)

// Notification messages for mutations
const (
	MsgCreateFailed  = "Failed to create page"
	MsgUpdateFailed  = "Failed to update page"
	MsgDeleteFailed  = "Failed to delete page"
	MsgMoveFailed    = "Failed to move page"
	MsgDeleteSuccess = "Page deleted successfully"
)

func (c *Cache) notifyError(message string, err error) {
	c.notifier.Notify(Notification{Level: NotificationError, Message: message, Err: err})
}

// CreatePage creates a page remotely. On success the new page is cached and
// the list entries of its parent scope are marked stale, along with the
// parent itself since its has-children flag may have changed.
func (c *Cache) CreatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	created, err := c.remote.CreatePage(ctx, page)
	if err != nil {
		c.notifyError(MsgCreateFailed, err)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	scope := types.ScopeKey{SpaceID: created.SpaceID, ParentPageID: created.ParentPageID}
	c.queries.SetValue(PageKey(created.ID), created)
	c.queries.InvalidatePrefix(ScopeListPrefix(scope))
	c.queries.InvalidatePrefix(RootSidebarPagesKey(scope))
	if created.ParentPageID != "" {
		c.queries.Invalidate(PageKey(created.ParentPageID))
	}
	return created, nil
}

// UpdatePage updates a page remotely and replaces its cached copy with the
// result. Cached lists are left untouched.
func (c *Cache) UpdatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	if page == nil || page.ID == "" {
		return nil, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}

	updated, err := c.remote.UpdatePage(ctx, page)
	if err != nil {
		c.notifyError(MsgUpdateFailed, err)
		return nil, fmt.Errorf("failed to update page %s: %w", page.ID, err)
	}

	c.queries.SetValue(PageKey(updated.ID), updated)
	return updated, nil
}

// DeletePage deletes a page remotely and drops its cached page and
// breadcrumbs. The store deletes descendants too, so every cached page and
// ancestor chain is marked stale.
func (c *Cache) DeletePage(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: page id is required", types.ErrValidation)
	}

	if err := c.remote.DeletePage(ctx, id); err != nil {
		c.notifyError(MsgDeleteFailed, err)
		return fmt.Errorf("failed to delete page %s: %w", id, err)
	}

	c.queries.Remove(PageKey(id))
	c.queries.Remove(BreadcrumbsKey(id))
	c.queries.InvalidatePrefix(PagesPrefix())
	c.queries.InvalidatePrefix(BreadcrumbsPrefix())
	c.notifier.Notify(Notification{Level: NotificationSuccess, Message: MsgDeleteSuccess})
	return nil
}

// MovePage moves a page remotely and marks its cached page stale. The chain
// of every descendant changes with it, so all cached breadcrumbs are marked stale.
func (c *Cache) MovePage(ctx context.Context, req types.MovePageRequest) error {
	if req.PageID == "" {
		return fmt.Errorf("%w: page id is required", types.ErrValidation)
	}

	if err := c.remote.MovePage(ctx, req); err != nil {
		c.notifyError(MsgMoveFailed, err)
		return fmt.Errorf("failed to move page %s: %w", req.PageID, err)
	}

	c.queries.InvalidatePrefix(BreadcrumbsPrefix())
	c.queries.Invalidate(PageKey(req.PageID))
	return nil
}
