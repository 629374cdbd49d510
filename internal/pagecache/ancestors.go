package pagecache

import (
	"context"
	"fmt"

	"github.com/Project-Sylos/Canopy/internal/querycache"
	"github.com/Project-Sylos/Canopy/internal/tree"
	"github.com/Project-Sylos/Canopy/internal/types"
	"golang.org/x/sync/errgroup"
)

func (c *Cache) ancestorOptions() querycache.Options {
	return querycache.Options{StaleTime: c.cfg.AncestorStaleTime.Duration, ServeStale: c.cfg.ServeStale}
}

// FetchAncestorChildren fetches one batch of the children of an ancestor
// through the cache with the long ancestor staleness window and returns it as
// a forest. Pages of the batch become roots.
func (c *Cache) FetchAncestorChildren(ctx context.Context, params types.SidebarPagesParams) ([]*types.TreeNode, error) {
	if params.Page == 0 {
		params.Page = 1
	}
	if err := validateScope(params.Scope(), params.Page); err != nil {
		return nil, err
	}

	list, err := c.fetchSidebarPages(ctx, params, c.ancestorOptions())
	if err != nil {
		return nil, err
	}
	return tree.Build(list.Items, tree.WithRoot(params.ParentPageID)), nil
}

// fetchScope loads every batch of scope through the ancestor cache path
func (c *Cache) fetchScope(ctx context.Context, scope types.ScopeKey) ([]types.Page, error) {
	var items []types.Page
	for pageNumber := 1; ; pageNumber++ {
		list, err := c.fetchSidebarPages(ctx, c.params(scope, pageNumber), c.ancestorOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch children of %q: %w", scope.ParentPageID, err)
		}
		items = append(items, list.Items...)
		if !list.Meta.HasNextPage || len(list.Items) == 0 {
			return items, nil
		}
	}
}

// ExpandToPage loads the root level of spaceID and the children of every
// ancestor of pageID, and returns one forest in which the path from the root
// to the page is expanded.
func (c *Cache) ExpandToPage(ctx context.Context, spaceID, pageID string) ([]*types.TreeNode, error) {
	if spaceID == "" {
		return nil, fmt.Errorf("%w: space id is required", types.ErrValidation)
	}

	crumbs, err := c.Breadcrumbs(ctx, pageID)
	if err != nil {
		return nil, err
	}

	scopes := []types.ScopeKey{{SpaceID: spaceID}}
	for _, ancestor := range crumbs[:max(len(crumbs)-1, 0)] {
		scopes = append(scopes, types.ScopeKey{SpaceID: spaceID, ParentPageID: ancestor.ID})
	}

	results := make([][]types.Page, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	for i, scope := range scopes {
		i, scope := i, scope
		g.Go(func() error {
			items, err := c.fetchScope(gctx, scope)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pages []types.Page
	for _, items := range results {
		pages = append(pages, items...)
	}
	return tree.Build(pages), nil
}
