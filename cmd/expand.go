package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var expandCmd = &cobra.Command{
	Use:   "expand [space] [page-id]",
	Short: "Print the sidebar of a space expanded down to one page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		canopy, err := newCanopy()
		if err != nil {
			return err
		}
		defer canopy.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		forest, err := canopy.ExpandToPage(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printForest(cmd.OutOrStdout(), forest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(expandCmd)
}
