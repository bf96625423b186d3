package main

import (
	"fmt"

	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/store"
	"github.com/spf13/cobra"
)

func newExportCommand(c *cli) *cobra.Command {
	var (
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write articles to a JSON file",
		Long:  `Write unanalyzed articles, or every article with --all, to a JSON array.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			filter := store.Unanalyzed(0)
			if all {
				filter = store.ArticleFilter{}
			}
			articles := c.tracker.Articles(ctx, filter)

			if err := writeJSONFile(output, articles); err != nil {
				return err
			}
			fmt.Printf("✓ Exported %d articles to %s\n", len(articles), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "articles.json", "output file")
	cmd.Flags().BoolVar(&all, "all", false, "include analyzed articles")
	return cmd
}

func newAnalyzeCommand(c *cli) *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Write a batch of unanalyzed articles for sentiment analysis",
		Long: `Write the newest unanalyzed articles as {id, title, content, url} items for the
sentiment consumer. Mark them afterwards with mark-analyzed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			articles := c.tracker.Unanalyzed(ctx, limit)
			if len(articles) == 0 {
				fmt.Println("No unanalyzed articles.")
				return nil
			}

			if err := writeJSONFile(output, article.ForAnalysis(articles)); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %d articles to %s\n", len(articles), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum articles in the batch")
	cmd.Flags().StringVarP(&output, "output", "o", "articles_for_analysis.json", "output file")
	return cmd
}
