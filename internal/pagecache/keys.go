package pagecache

import (
	"strconv"

	"github.com/Project-Sylos/Canopy/internal/querycache"
	"github.com/Project-Sylos/Canopy/internal/types"
)

// Query key roots
const (
	sidebarPagesRoot     = "sidebar-pages"
	rootSidebarPagesRoot = "root-sidebar-pages"
	pagesRoot            = "pages"
	recentChangesRoot    = "recentChanges"
	breadcrumbsRoot      = "breadcrumbs"
)

// SidebarPagesKey identifies one batch of a scope: ["sidebar-pages", space, parent, page(, limit)]
func SidebarPagesKey(params types.SidebarPagesParams) querycache.Key {
	key := querycache.Key{sidebarPagesRoot, params.SpaceID, params.ParentPageID, strconv.Itoa(params.Page)}
	if params.Limit > 0 {
		key = append(key, strconv.Itoa(params.Limit))
	}
	return key
}

// ScopeListPrefix matches every batch cached for scope
func ScopeListPrefix(scope types.ScopeKey) querycache.Key {
	return querycache.Key{sidebarPagesRoot, scope.SpaceID, scope.ParentPageID}
}

// RootSidebarPagesKey identifies the infinite stream of scope
func RootSidebarPagesKey(scope types.ScopeKey) querycache.Key {
	return querycache.Key{rootSidebarPagesRoot, scope.SpaceID, scope.ParentPageID}
}

// PageKey identifies a single page
func PageKey(id string) querycache.Key {
	return querycache.Key{pagesRoot, id}
}

// PagesPrefix matches every cached page
func PagesPrefix() querycache.Key {
	return querycache.Key{pagesRoot}
}

// RecentChangesKey identifies the recent changes of a space
func RecentChangesKey(spaceID string) querycache.Key {
	return querycache.Key{recentChangesRoot, spaceID}
}

// BreadcrumbsKey identifies the ancestor chain of a page
func BreadcrumbsKey(id string) querycache.Key {
	return querycache.Key{breadcrumbsRoot, id}
}

// BreadcrumbsPrefix matches every cached ancestor chain
func BreadcrumbsPrefix() querycache.Key {
	return querycache.Key{breadcrumbsRoot}
}
