package cmd

import (
	"context"
	"fmt"

	"github.com/Project-Sylos/Canopy/internal/utils"
	"github.com/spf13/cobra"
)

var breadcrumbsCmd = &cobra.Command{
	Use:   "breadcrumbs [page-id]",
	Short: "Print the title path from the space root to a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		canopy, err := newCanopy()
		if err != nil {
			return err
		}
		defer canopy.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		crumbs, err := canopy.Breadcrumbs(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), utils.BreadcrumbPath(crumbs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breadcrumbsCmd)
}
