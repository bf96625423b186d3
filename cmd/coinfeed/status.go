package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const statusRecent = 5

func newStatusCommand(c *cli) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			stats := c.tracker.Stats(ctx)
			printStats(stats, c.cfg.Store.Type)

			if verbose {
				recent := c.tracker.Unanalyzed(ctx, statusRecent)
				if len(recent) == 0 {
					return nil
				}
				fmt.Println()
				fmt.Println("Newest unanalyzed articles:")
				printArticleTable(recent)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the newest unanalyzed articles")
	return cmd
}
