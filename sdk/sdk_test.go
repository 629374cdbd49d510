package sdk

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Project-Sylos/Canopy/internal/config"
	"github.com/Project-Sylos/Canopy/internal/logging"
	"github.com/stretchr/testify/require"
)

// TestNew tests the New function with various configurations
func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		file        string
		expectError bool
	}{
		{name: "defaults", config: ""},
		{name: "json config", file: "canopy.json", config: `{"client": {"base_url": "http://pages:9000", "timeout": "5s"}, "cache": {"max_entries": 16}}`},
		{name: "yaml config", file: "canopy.yaml", config: "cache:\n  max_entries: 16\n  serve_stale: true\n"},
		{name: "invalid config", file: "bad.json", config: `{"cache": {"max_entries": 0}}`, expectError: true},
		{name: "malformed config", file: "broken.json", config: `{`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), tt.file)
				require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644))
			}

			c, err := New(path, WithLogger(logging.Nop()))
			if tt.expectError {
				require.Error(t, err)
				require.Nil(t, c)
				return
			}
			require.NoError(t, err)
			defer c.Close()

			require.NotNil(t, c.GetConfig())
			require.IsType(t, &Client{}, c.Remote())
		})
	}
}

func TestCanopyAgainstStore(t *testing.T) {
	srv := newStoreServer(t)

	cfg := config.DefaultConfig()
	cfg.Client.BaseURL = srv.URL
	cfg.Store.PageSize = 2

	var mu sync.Mutex
	var notes []string
	c, err := NewWithConfig(&cfg,
		WithLogger(logging.Nop()),
		WithNotifier(NotifierFunc(func(n Notification) {
			mu.Lock()
			notes = append(notes, n.Message)
			mu.Unlock()
		})),
	)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		p, err := c.CreatePage(ctx, &Page{SpaceID: "S1", Title: title, Position: -1})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	child, err := c.CreatePage(ctx, &Page{SpaceID: "S1", ParentPageID: ids[0], Title: "A1", Position: -1})
	require.NoError(t, err)

	q := c.Infinite(ScopeKey{SpaceID: "S1"})
	_, err = q.Fetch(ctx)
	require.NoError(t, err)
	require.True(t, q.HasNextPage())
	_, err = q.FetchNextPage(ctx)
	require.NoError(t, err)
	require.False(t, q.HasNextPage())
	require.Len(t, q.Items(), 3)

	forest, err := c.ExpandToPage(ctx, "S1", child.ID)
	require.NoError(t, err)
	require.Len(t, forest, 3)
	require.Equal(t, child.ID, forest[0].Children[0].ID)

	require.NoError(t, c.DeletePage(ctx, ids[0]))
	_, err = c.GetPage(ctx, ids[0])
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.CreatePage(ctx, &Page{SpaceID: "S1"})
	require.ErrorIs(t, err, ErrValidation)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"Page deleted successfully", "Failed to create page"}, notes)
}
