package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent [space]",
	Short: "List the most recently updated pages",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		canopy, err := newCanopy()
		if err != nil {
			return err
		}
		defer canopy.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		spaceID := ""
		if len(args) == 1 {
			spaceID = args[0]
		}
		pages, err := canopy.RecentChanges(ctx, spaceID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UPDATED\tSPACE\tTITLE\tID")
		for _, page := range pages {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", page.UpdatedAt.Local().Format(time.DateTime), page.SpaceID, page.Title, page.ID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)
}
