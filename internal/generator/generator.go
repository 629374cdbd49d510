package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/google/uuid"
)

// RNG wraps math/rand.Rand for seeded random generation
type RNG struct {
	*rand.Rand
}

// NewRNG creates a new seeded random number generator
func NewRNG(seed int64) *RNG {
	return &RNG{
		Rand: rand.New(rand.NewSource(seed)),
	}
}

var titleIcons = []string{"", "📄", "📝", "📌", "📚", "🗂"}

// GenerateTree generates a page hierarchy for spaceID. Parents always precede
// their children in the result, and the same seed yields the same ids, titles
// and content.
func GenerateTree(spaceID string, cfg types.SeedConfig, rng *RNG, now time.Time) ([]*types.Page, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var pages []*types.Page
	var queue []*types.Page
	depths := make(map[string]int)

	for i := 0; i < cfg.RootPages; i++ {
		page, err := generatePage(spaceID, "", fmt.Sprintf("Page %d", i+1), i, rng, now)
		if err != nil {
			return nil, fmt.Errorf("failed to generate root page %d: %w", i+1, err)
		}
		pages = append(pages, page)
		queue = append(queue, page)
		depths[page.ID] = 1
	}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := GenerateChildren(parent, depths[parent.ID], rng, cfg, now)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			depths[child.ID] = depths[parent.ID] + 1
		}
		pages = append(pages, children...)
		queue = append(queue, children...)
	}

	return pages, nil
}

// GenerateChildren generates children pages for a given parent based on configuration
func GenerateChildren(parent *types.Page, depth int, rng *RNG, cfg types.SeedConfig, now time.Time) ([]*types.Page, error) {
	var children []*types.Page

	// Don't generate children if we've reached max depth
	if depth >= cfg.MaxDepth {
		return children, nil
	}

	count := rng.Intn(cfg.MaxChildren-cfg.MinChildren+1) + cfg.MinChildren
	for i := 0; i < count; i++ {
		title := fmt.Sprintf("%s.%d", parent.Title, i+1)
		child, err := generatePage(parent.SpaceID, parent.ID, title, i, rng, now)
		if err != nil {
			return nil, fmt.Errorf("failed to generate child %d of %s: %w", i+1, parent.ID, err)
		}
		children = append(children, child)
	}

	if len(children) > 0 {
		parent.HasChildren = true
	}
	return children, nil
}

// generatePage creates a page whose id is drawn from rng
func generatePage(spaceID, parentID, title string, position int, rng *RNG, now time.Time) (*types.Page, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate page id: %w", err)
	}

	content, checksum := GenerateContent(rng)

	return &types.Page{
		ID:              id.String(),
		SpaceID:         spaceID,
		ParentPageID:    parentID,
		Title:           title,
		Icon:            titleIcons[rng.Intn(len(titleIcons))],
		Content:         content,
		ContentChecksum: checksum,
		Position:        position,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ValidateConfig validates the generator configuration
func ValidateConfig(cfg types.SeedConfig) error {
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1")
	}
	if cfg.RootPages < 0 {
		return fmt.Errorf("root_pages must not be negative")
	}
	if cfg.MinChildren < 0 || cfg.MaxChildren < cfg.MinChildren {
		return fmt.Errorf("invalid child count range: min=%d, max=%d", cfg.MinChildren, cfg.MaxChildren)
	}
	return nil
}
