package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for Canopy
type Config struct {
	Store  StoreConfig  `json:"store" yaml:"store"`
	API    APIConfig    `json:"api" yaml:"api"`
	Client ClientConfig `json:"client" yaml:"client"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Seed   SeedConfig   `json:"seed" yaml:"seed"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// StoreConfig represents the reference page store configuration
type StoreConfig struct {
	DBPath   string `json:"db_path" yaml:"db_path"`
	PageSize int    `json:"page_size" yaml:"page_size"` // Default sidebar batch size
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// ClientConfig represents the remote page store client configuration
type ClientConfig struct {
	BaseURL string   `json:"base_url" yaml:"base_url"`
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

// CacheConfig represents the query cache configuration
type CacheConfig struct {
	MaxEntries        int      `json:"max_entries" yaml:"max_entries"`
	PageStaleTime     Duration `json:"page_stale_time" yaml:"page_stale_time"`         // Single page detail fetches
	AncestorStaleTime Duration `json:"ancestor_stale_time" yaml:"ancestor_stale_time"` // Ancestor-children prefetches
	ListStaleTime     Duration `json:"list_stale_time" yaml:"list_stale_time"`         // Sidebar list batches
	ServeStale        bool     `json:"serve_stale" yaml:"serve_stale"`
}

// SeedConfig represents the demo tree generation configuration
type SeedConfig struct {
	MaxDepth    int   `json:"max_depth" yaml:"max_depth"`
	MinChildren int   `json:"min_children" yaml:"min_children"`
	MaxChildren int   `json:"max_children" yaml:"max_children"`
	RootPages   int   `json:"root_pages" yaml:"root_pages"`
	Seed        int64 `json:"seed" yaml:"seed"`
}

// LogConfig represents the logging configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

// Duration is a time.Duration that reads and writes as a string like "5m"
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. Bare numbers are read as nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		d.Duration = time.Duration(v)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Page represents a single page in a space's hierarchy
type Page struct {
	ID              string    `json:"id"`
	SpaceID         string    `json:"space_id"`
	ParentPageID    string    `json:"parent_page_id,omitempty"` // Empty for root pages
	Title           string    `json:"title"`
	Icon            string    `json:"icon,omitempty"`
	Content         string    `json:"content,omitempty"`
	ContentChecksum string    `json:"content_checksum,omitempty"`
	Position        int       `json:"position"`
	HasChildren     bool      `json:"has_children"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsRoot reports whether the page sits at the top of its space
func (p *Page) IsRoot() bool {
	return p.ParentPageID == ""
}

// PaginationMeta describes where a PageList sits in its stream
type PaginationMeta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

// PageList is one fetched batch of sibling pages
type PageList struct {
	Items []Page         `json:"items"`
	Meta  PaginationMeta `json:"meta"`
}

// ScopeKey identifies one pagination stream: a space and an optional parent
type ScopeKey struct {
	SpaceID      string `json:"space_id"`
	ParentPageID string `json:"parent_page_id,omitempty"`
}

// String returns a readable form of the scope
func (s ScopeKey) String() string {
	if s.ParentPageID == "" {
		return s.SpaceID
	}
	return s.SpaceID + "/" + s.ParentPageID
}

// SidebarPagesParams selects one batch of a scope's children
type SidebarPagesParams struct {
	SpaceID      string `json:"space_id"`
	ParentPageID string `json:"parent_page_id,omitempty"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit,omitempty"`
}

// Scope returns the pagination stream these params belong to
func (p SidebarPagesParams) Scope() ScopeKey {
	return ScopeKey{SpaceID: p.SpaceID, ParentPageID: p.ParentPageID}
}

// MovePageRequest relocates a page under a new parent at a sibling position
type MovePageRequest struct {
	PageID       string `json:"page_id"`
	ParentPageID string `json:"parent_page_id,omitempty"`
	Position     int    `json:"position"`
}

// TreeNode is a page with its ordered children attached
type TreeNode struct {
	Page
	Children       []*TreeNode `json:"children"`
	ChildrenLoaded bool        `json:"children_loaded"` // False when the page has children that were not fetched
}

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// TableInfo represents information about a database table
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
}

// Sidebar limits
const (
	DefaultPageSize = 50
	MaxPageSize     = 250
	RecentLimit     = 20
)
