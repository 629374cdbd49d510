// Package tree assembles flat page listings into ordered forests.
//
// Build is pure: it never fetches, caches or mutates its input, and equal
// inputs always produce structurally equal forests.
//
// A page whose parent is not part of the input is promoted to a root, so a
// partial fetch (for example the children of one page) still renders; the
// caller decides whether such roots are shown as disconnected or merged later.
package tree

import (
	"sort"

	"github.com/Project-Sylos/Canopy/internal/types"
)

type buildOptions struct {
	rootID string
}

// Option configures Build
type Option func(*buildOptions)

// WithRoot treats pages whose parent is rootID as roots, even if rootID itself
// appears in the input.
func WithRoot(rootID string) Option {
	return func(o *buildOptions) {
		o.rootID = rootID
	}
}

// Build converts pages into a forest of roots. Siblings are ordered by
// ascending Position, ties keep input order. Duplicate ids keep the first
// occurrence.
func Build(pages []types.Page, opts ...Option) []*types.TreeNode {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	nodes := make(map[string]*types.TreeNode, len(pages))
	order := make([]*types.TreeNode, 0, len(pages))
	for _, page := range pages {
		if _, dup := nodes[page.ID]; dup {
			continue
		}
		node := &types.TreeNode{Page: page, Children: []*types.TreeNode{}}
		nodes[page.ID] = node
		order = append(order, node)
	}

	// Group by parent, keeping input order within each group
	children := make(map[string][]*types.TreeNode, len(order))
	var roots []*types.TreeNode
	for _, node := range order {
		parentID := node.ParentPageID
		_, parentKnown := nodes[parentID]
		if parentID == "" || parentID == node.ID || (o.rootID != "" && parentID == o.rootID) || !parentKnown {
			roots = append(roots, node)
			continue
		}
		children[parentID] = append(children[parentID], node)
	}

	visited := make(map[string]bool, len(order))
	var attach func(node *types.TreeNode)
	attach = func(node *types.TreeNode) {
		visited[node.ID] = true
		for _, child := range children[node.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, child)
			attach(child)
		}
		sortSiblings(node.Children)
		node.ChildrenLoaded = len(node.Children) > 0 || !node.HasChildren
	}

	sortSiblings(roots)
	for _, root := range roots {
		attach(root)
	}

	// Whatever is left hangs off a parent cycle; break it at the first page in input order
	for _, node := range order {
		if visited[node.ID] {
			continue
		}
		roots = append(roots, node)
		attach(node)
	}

	if roots == nil {
		return []*types.TreeNode{}
	}
	return roots
}

func sortSiblings(nodes []*types.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Position < nodes[j].Position
	})
}

// Flatten returns the pages of a forest in pre-order
func Flatten(forest []*types.TreeNode) []types.Page {
	var pages []types.Page
	Walk(forest, func(node *types.TreeNode, _ int) bool {
		pages = append(pages, node.Page)
		return true
	})
	return pages
}

// Walk visits every node in pre-order with its depth (roots are 0). Returning
// false from fn skips the node's children.
func Walk(forest []*types.TreeNode, fn func(node *types.TreeNode, depth int) bool) {
	var walk func(nodes []*types.TreeNode, depth int)
	walk = func(nodes []*types.TreeNode, depth int) {
		for _, node := range nodes {
			if fn(node, depth) {
				walk(node.Children, depth+1)
			}
		}
	}
	walk(forest, 0)
}

// Count returns the number of nodes in a forest
func Count(forest []*types.TreeNode) int {
	count := 0
	Walk(forest, func(*types.TreeNode, int) bool {
		count++
		return true
	})
	return count
}

// Find returns the node with the given id, or nil
func Find(forest []*types.TreeNode, id string) *types.TreeNode {
	var found *types.TreeNode
	Walk(forest, func(node *types.TreeNode, _ int) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}
