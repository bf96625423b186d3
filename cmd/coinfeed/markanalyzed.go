package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newMarkAnalyzedCommand(c *cli) *cobra.Command {
	var (
		id     string
		result string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "mark-analyzed",
		Short: "Mark articles as analyzed",
		Long: `Mark one article, or every unanalyzed article, as analyzed. The optional
--result JSON is stored verbatim as the sentiment result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == "") == !all {
				return errors.New("exactly one of --id or --all-unanalyzed is required")
			}

			var payload json.RawMessage
			if result != "" {
				if !json.Valid([]byte(result)) {
					return errors.New("--result must be valid JSON")
				}
				payload = json.RawMessage(result)
			}

			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			if !all {
				articleID, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid article ID: %w", err)
				}
				if _, ok := c.tracker.Article(ctx, articleID); !ok {
					return fmt.Errorf("article not found: %s", articleID)
				}
				if !c.tracker.MarkAnalyzed(ctx, articleID, payload) {
					return fmt.Errorf("failed to mark article %s", articleID)
				}
				fmt.Printf("✓ Marked article as analyzed: %s\n", articleID)
				return nil
			}

			marked := 0
			for _, a := range c.tracker.Unanalyzed(ctx, 0) {
				if c.tracker.MarkAnalyzed(ctx, a.ID, payload) {
					marked++
				}
			}
			fmt.Printf("✓ Marked %d articles as analyzed\n", marked)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "article ID")
	cmd.Flags().StringVar(&result, "result", "", "sentiment result JSON")
	cmd.Flags().BoolVar(&all, "all-unanalyzed", false, "mark every unanalyzed article")
	return cmd
}
