package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand(c *cli) *cobra.Command {
	var (
		days   int
		dryRun bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old analyzed articles",
		Long: `Delete analyzed articles whose analysis is older than the retention period.
Unanalyzed articles and the seen-URL ledger are never touched, so deleted
articles are not scraped again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			retention := c.cfg.Cleanup.RetentionDays
			if cmd.Flags().Changed("days") {
				retention = days
			}
			if all {
				retention = 0
			}
			if retention < 0 {
				return fmt.Errorf("--days must not be negative")
			}

			if dryRun {
				candidates := c.tracker.CleanupCandidates(ctx, retention)
				if len(candidates) == 0 {
					fmt.Println("Nothing to clean up.")
					return nil
				}
				fmt.Printf("Would delete %d analyzed articles:\n", len(candidates))
				printArticleTable(candidates)
				return nil
			}

			deleted := c.tracker.Cleanup(ctx, retention)
			fmt.Printf("✓ Deleted %d analyzed articles older than %d days\n", deleted, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "retention period in days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be deleted")
	cmd.Flags().BoolVar(&all, "all", false, "delete every analyzed article")
	return cmd
}
