// Package sdk is the public entry point to Canopy: a hierarchical page cache
// in front of a remote page store.
package sdk

import (
	"context"
	"fmt"
	"os"

	"github.com/Project-Sylos/Canopy/internal/config"
	"github.com/Project-Sylos/Canopy/internal/logging"
	"github.com/Project-Sylos/Canopy/internal/pagecache"
	"github.com/Project-Sylos/Canopy/internal/querycache"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/rs/zerolog"
)

// Canopy is the public SDK interface for the page cache.
// This wraps the internal implementation to provide a clean public API
type Canopy struct {
	cfg    *types.Config
	remote RemoteStore
	cache  *pagecache.Cache
	logger zerolog.Logger
}

// Option configures NewWithConfig
type Option func(*options)

type options struct {
	remote   RemoteStore
	notifier Notifier
	logger   *zerolog.Logger
}

// WithRemote replaces the HTTP client with another remote store
func WithRemote(remote RemoteStore) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithNotifier receives mutation notifications instead of the log
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger replaces the logger built from the log configuration
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New creates a Canopy instance using the specified config file (defaults
// when empty), a .env file in the working directory and CANOPY_* variables
func New(configPath string, opts ...Option) (*Canopy, error) {
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts...)
}

// NewWithDefaults creates a Canopy instance using default configuration
func NewWithDefaults(opts ...Option) (*Canopy, error) {
	return New("", opts...)
}

// NewWithConfig creates a Canopy instance from an already loaded configuration
func NewWithConfig(cfg *types.Config, opts ...Option) (*Canopy, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := logging.New(cfg.Log, os.Stderr)
	if o.logger != nil {
		logger = *o.logger
	}

	remote := o.remote
	if remote == nil {
		remote = NewClient(cfg.Client.BaseURL, cfg.Client.Timeout.Duration)
	}

	queries, err := querycache.New(cfg.Cache.MaxEntries, querycache.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query cache: %w", err)
	}

	cacheOpts := []pagecache.Option{
		pagecache.WithLogger(logger),
		pagecache.WithPageSize(cfg.Store.PageSize),
	}
	if o.notifier != nil {
		cacheOpts = append(cacheOpts, pagecache.WithNotifier(o.notifier))
	}

	return &Canopy{
		cfg:    cfg,
		remote: remote,
		cache:  pagecache.New(remote, queries, cfg.Cache, cacheOpts...),
		logger: logger,
	}, nil
}

// FetchPage returns batch pageNumber (from 1) of the children of scope
func (c *Canopy) FetchPage(ctx context.Context, scope ScopeKey, pageNumber int) (*PageList, error) {
	return c.cache.FetchPage(ctx, scope, pageNumber)
}

// GetPage returns a single page
func (c *Canopy) GetPage(ctx context.Context, id string) (*Page, error) {
	return c.cache.GetPage(ctx, id)
}

// Infinite returns the bidirectional page stream of scope
func (c *Canopy) Infinite(scope ScopeKey) *InfiniteQuery {
	return c.cache.Infinite(scope)
}

// InvalidatePage marks the cached copy of a page stale
func (c *Canopy) InvalidatePage(id string) bool {
	return c.cache.InvalidatePage(id)
}

// RecentChanges returns the recently changed pages of a space
func (c *Canopy) RecentChanges(ctx context.Context, spaceID string) ([]Page, error) {
	return c.cache.RecentChanges(ctx, spaceID)
}

// Breadcrumbs returns the ancestor chain of a page, root first
func (c *Canopy) Breadcrumbs(ctx context.Context, id string) ([]Page, error) {
	return c.cache.Breadcrumbs(ctx, id)
}

// FetchAncestorChildren fetches the children of an ancestor as a forest
func (c *Canopy) FetchAncestorChildren(ctx context.Context, params SidebarPagesParams) ([]*TreeNode, error) {
	return c.cache.FetchAncestorChildren(ctx, params)
}

// ExpandToPage returns the sidebar forest expanded down to pageID
func (c *Canopy) ExpandToPage(ctx context.Context, spaceID, pageID string) ([]*TreeNode, error) {
	return c.cache.ExpandToPage(ctx, spaceID, pageID)
}

// CreatePage creates a page. A negative position appends it after its last sibling.
func (c *Canopy) CreatePage(ctx context.Context, page *Page) (*Page, error) {
	return c.cache.CreatePage(ctx, page)
}

// UpdatePage updates the non-empty title, icon and content of a page; empty fields are left unchanged
func (c *Canopy) UpdatePage(ctx context.Context, page *Page) (*Page, error) {
	return c.cache.UpdatePage(ctx, page)
}

// DeletePage deletes a page and its descendants
func (c *Canopy) DeletePage(ctx context.Context, id string) error {
	return c.cache.DeletePage(ctx, id)
}

// MovePage moves a page under a new parent
func (c *Canopy) MovePage(ctx context.Context, req MovePageRequest) error {
	return c.cache.MovePage(ctx, req)
}

// Subscribe registers fn for cache change events and returns a function that unregisters it
func (c *Canopy) Subscribe(fn func(CacheEvent)) func() {
	return c.cache.Subscribe(fn)
}

// Remote returns the remote store the cache reads from
func (c *Canopy) Remote() RemoteStore {
	return c.remote
}

// GetConfig returns the current configuration
func (c *Canopy) GetConfig() *Config {
	return c.cfg
}

// Close stops background refreshes and drops the cache.
// Always call this method during shutdown.
func (c *Canopy) Close() error {
	return c.cache.Close()
}

// Re-export types for convenience
type (
	Config             = types.Config
	Page               = types.Page
	PageList           = types.PageList
	PaginationMeta     = types.PaginationMeta
	ScopeKey           = types.ScopeKey
	SidebarPagesParams = types.SidebarPagesParams
	MovePageRequest    = types.MovePageRequest
	TreeNode           = types.TreeNode
	APIResponse        = types.APIResponse

	RemoteStore   = pagecache.RemoteStore
	InfiniteQuery = pagecache.InfiniteQuery
	InfiniteData  = pagecache.InfiniteData
	Notifier      = pagecache.Notifier
	NotifierFunc  = pagecache.NotifierFunc
	Notification  = pagecache.Notification
	CacheEvent    = querycache.Event
)

// Re-export error kinds
var (
	ErrTransport  = types.ErrTransport
	ErrNotFound   = types.ErrNotFound
	ErrValidation = types.ErrValidation
)
