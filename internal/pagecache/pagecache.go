// Package pagecache serves a hierarchical page sidebar from a remote page
// store through a keyed query cache.
//
// Reads are cached per query key and deduplicated: concurrent identical reads
// share one remote call. Mutations invalidate or replace the keys they are
// known to affect. They are not ordered against list fetches already in
// flight, so a list fetched across a mutation may hold pre-mutation data until
// its next invalidation or until it goes stale.
package pagecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/Project-Sylos/Canopy/internal/querycache"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/rs/zerolog"
)

// RemoteStore is the remote page service the cache reads from and writes to
type RemoteStore interface {
	GetPageByID(ctx context.Context, id string) (*types.Page, error)
	GetSidebarPages(ctx context.Context, params types.SidebarPagesParams) (*types.PageList, error)
	GetRecentChanges(ctx context.Context, spaceID string) ([]types.Page, error)
	GetPageBreadcrumbs(ctx context.Context, id string) ([]types.Page, error)
	CreatePage(ctx context.Context, page *types.Page) (*types.Page, error)
	UpdatePage(ctx context.Context, page *types.Page) (*types.Page, error)
	DeletePage(ctx context.Context, id string) error
	MovePage(ctx context.Context, req types.MovePageRequest) error
}

// Cache is the hierarchical page cache. It is safe for concurrent use.
type Cache struct {
	remote   RemoteStore
	queries  *querycache.Cache
	cfg      types.CacheConfig
	pageSize int
	notifier Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	infinite map[string]*InfiniteQuery
}

// Option configures a Cache
type Option func(*Cache)

// WithNotifier sets where mutation notifications go; the default logs them
func WithNotifier(n Notifier) Option {
	return func(c *Cache) {
		c.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithPageSize sets the batch size requested from the remote store. Zero
// leaves it to the store's default.
func WithPageSize(limit int) Option {
	return func(c *Cache) {
		c.pageSize = limit
	}
}

// New creates a page cache reading from remote and storing results in queries
func New(remote RemoteStore, queries *querycache.Cache, cfg types.CacheConfig, opts ...Option) *Cache {
	c := &Cache{
		remote:   remote,
		queries:  queries,
		cfg:      cfg,
		logger:   zerolog.Nop(),
		infinite: make(map[string]*InfiniteQuery),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}
	return c
}

func (c *Cache) listOptions() querycache.Options {
	return querycache.Options{StaleTime: c.cfg.ListStaleTime.Duration, ServeStale: c.cfg.ServeStale}
}

func (c *Cache) pageOptions() querycache.Options {
	return querycache.Options{StaleTime: c.cfg.PageStaleTime.Duration, ServeStale: c.cfg.ServeStale}
}

func (c *Cache) params(scope types.ScopeKey, pageNumber int) types.SidebarPagesParams {
	return types.SidebarPagesParams{
		SpaceID:      scope.SpaceID,
		ParentPageID: scope.ParentPageID,
		Page:         pageNumber,
		Limit:        c.pageSize,
	}
}

func validateScope(scope types.ScopeKey, pageNumber int) error {
	if scope.SpaceID == "" {
		return fmt.Errorf("%w: space id is required", types.ErrValidation)
	}
	if pageNumber < 1 {
		return fmt.Errorf("%w: page number must be at least 1, got %d", types.ErrValidation, pageNumber)
	}
	return nil
}

// fetchSidebarPages reads one batch through the cache with the given freshness
func (c *Cache) fetchSidebarPages(ctx context.Context, params types.SidebarPagesParams, opts querycache.Options) (*types.PageList, error) {
	return querycache.Fetch(ctx, c.queries, SidebarPagesKey(params), func(ctx context.Context) (*types.PageList, error) {
		c.logger.Debug().
			Str("space_id", params.SpaceID).
			Str("parent_page_id", params.ParentPageID).
			Int("page", params.Page).
			Msg("fetching sidebar pages")
		return c.remote.GetSidebarPages(ctx, params)
	}, opts)
}

// FetchPage returns batch pageNumber (from 1) of the children of scope
func (c *Cache) FetchPage(ctx context.Context, scope types.ScopeKey, pageNumber int) (*types.PageList, error) {
	if err := validateScope(scope, pageNumber); err != nil {
		return nil, err
	}
	return c.fetchSidebarPages(ctx, c.params(scope, pageNumber), c.listOptions())
}

// GetPage returns a single page
func (c *Cache) GetPage(ctx context.Context, id string) (*types.Page, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}
	return querycache.Fetch(ctx, c.queries, PageKey(id), func(ctx context.Context) (*types.Page, error) {
		return c.remote.GetPageByID(ctx, id)
	}, c.pageOptions())
}

// InvalidatePage marks only the cached copy of page id stale
func (c *Cache) InvalidatePage(id string) bool {
	return c.queries.Invalidate(PageKey(id))
}

// RecentChanges returns the recently changed pages of a space. Every call
// goes to the remote store; concurrent calls share one request.
func (c *Cache) RecentChanges(ctx context.Context, spaceID string) ([]types.Page, error) {
	return querycache.Fetch(ctx, c.queries, RecentChangesKey(spaceID), func(ctx context.Context) ([]types.Page, error) {
		return c.remote.GetRecentChanges(ctx, spaceID)
	}, querycache.Options{})
}

// Breadcrumbs returns the ancestor chain of id, root first and ending with the page itself
func (c *Cache) Breadcrumbs(ctx context.Context, id string) ([]types.Page, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: page id is required", types.ErrValidation)
	}
	return querycache.Fetch(ctx, c.queries, BreadcrumbsKey(id), func(ctx context.Context) ([]types.Page, error) {
		return c.remote.GetPageBreadcrumbs(ctx, id)
	}, c.pageOptions())
}

// Infinite returns the bidirectional page stream of scope. Calls with the
// same scope return the same stream.
func (c *Cache) Infinite(scope types.ScopeKey) *InfiniteQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := RootSidebarPagesKey(scope).String()
	q, ok := c.infinite[id]
	if !ok {
		q = &InfiniteQuery{cache: c, scope: scope, key: RootSidebarPagesKey(scope)}
		c.infinite[id] = q
	}
	return q
}

// Subscribe registers fn for cache change events; see querycache.Cache.Subscribe
func (c *Cache) Subscribe(fn func(querycache.Event)) func() {
	return c.queries.Subscribe(fn)
}

// Close stops background refreshes and drops every cached query
func (c *Cache) Close() error {
	return c.queries.Close()
}
