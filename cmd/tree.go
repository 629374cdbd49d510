package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Project-Sylos/Canopy/internal/tree"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/Project-Sylos/Canopy/sdk"
	"github.com/spf13/cobra"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [space] [parent-page-id]",
	Short: "Print the sidebar of a space, optionally below one page",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		canopy, err := newCanopy()
		if err != nil {
			return err
		}
		defer canopy.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		scope := sdk.ScopeKey{SpaceID: args[0]}
		if len(args) == 2 {
			scope.ParentPageID = args[1]
		}

		forest, err := loadForest(ctx, canopy, scope, treeDepth)
		if err != nil {
			return err
		}
		printForest(cmd.OutOrStdout(), forest)
		return nil
	},
}

// loadForest pages through scope and, below depth 1, through the children of
// every loaded page that has any
func loadForest(ctx context.Context, canopy *sdk.Canopy, scope sdk.ScopeKey, depth int) ([]*types.TreeNode, error) {
	q := canopy.Infinite(scope)
	if _, err := q.Fetch(ctx); err != nil {
		return nil, err
	}
	for q.HasNextPage() {
		if _, err := q.FetchNextPage(ctx); err != nil {
			return nil, err
		}
	}

	pages := q.Items()
	if depth > 1 {
		for _, page := range q.Items() {
			if !page.HasChildren {
				continue
			}
			below, err := loadForest(ctx, canopy, sdk.ScopeKey{SpaceID: scope.SpaceID, ParentPageID: page.ID}, depth-1)
			if err != nil {
				return nil, err
			}
			pages = append(pages, tree.Flatten(below)...)
		}
	}
	return tree.Build(pages, tree.WithRoot(scope.ParentPageID)), nil
}

// printForest writes one line per page, indented by depth. Pages whose
// children were not loaded are marked with "+".
func printForest(w io.Writer, forest []*types.TreeNode) {
	if len(forest) == 0 {
		fmt.Fprintln(w, "(no pages)")
		return
	}
	tree.Walk(forest, func(node *types.TreeNode, depth int) bool {
		marker := "-"
		if node.HasChildren && len(node.Children) == 0 {
			marker = "+"
		}
		title := node.Title
		if node.Icon != "" {
			title = node.Icon + " " + title
		}
		fmt.Fprintf(w, "%s%s %s  (%s)\n", strings.Repeat("  ", depth), marker, title, node.ID)
		return true
	})
}

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 1, "Number of levels to load")
	rootCmd.AddCommand(treeCmd)
}
