package utils

import (
	"strings"

	"github.com/Project-Sylos/Canopy/internal/types"
)

// JoinPath joins path parts using forward slashes regardless of host OS.
// It strips leading/trailing slashes from each component, then prefixes the result with "/".
// Pattern:
//   - Space root = "/"
//   - Root page = "/{title}"
//   - Its children = "/{title}/{child title}" etc.
func JoinPath(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}

	if len(cleaned) == 0 {
		return "/"
	}

	return "/" + strings.Join(cleaned, "/")
}

// BreadcrumbPath renders a root-first ancestor chain as a path of titles.
// Untitled pages show as their id.
func BreadcrumbPath(crumbs []types.Page) string {
	parts := make([]string, 0, len(crumbs))
	for _, page := range crumbs {
		title := strings.TrimSpace(page.Title)
		if title == "" {
			title = page.ID
		}
		parts = append(parts, strings.ReplaceAll(title, "/", "∕"))
	}
	return JoinPath(parts...)
}
