package main

import (
	"fmt"
	"time"

	"github.com/pevans/coinfeed"
	"github.com/pevans/coinfeed/discovery"
	"github.com/pevans/coinfeed/extract"
	"github.com/pevans/coinfeed/fetcher"
	"github.com/pevans/coinfeed/metrics"
	"github.com/spf13/cobra"
)

func newScrapeCommand(c *cli) *cobra.Command {
	var (
		limit      int
		dateFilter string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape",
		Long: `Discover new articles on the listing pages, skip the ones already seen,
then fetch, extract and store the rest one at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			filter, err := coinfeed.ParseDateFilter(dateFilter, time.Now())
			if err != nil {
				return err
			}

			h, err := c.harvester(metrics.Nop{})
			if err != nil {
				return err
			}

			result, err := h.Run(ctx, coinfeed.RunOptions{Limit: limit, DateFilter: filter})
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}

			printRunResult(result, verbose)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum articles to process (default from config)")
	cmd.Flags().StringVar(&dateFilter, "date", coinfeed.FilterAll,
		"date filter: all, today, yesterday, last_3_days, last_week or YYYY-MM-DD")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the saved articles")

	return cmd
}

// harvester wires a Harvester from the loaded configuration. open must have
// been called.
func (c *cli) harvester(rec metrics.Recorder) (*coinfeed.Harvester, error) {
	client := fetcher.New(c.cfg.Fetcher(), c.log)

	source, err := discovery.NewSource(&c.cfg.Site, client, c.cfg.Scrape.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery source: %w", err)
	}

	hc := coinfeed.HarvestConfig{
		Limit:            c.cfg.Scrape.Limit,
		MaxPages:         c.cfg.Scrape.MaxPages,
		MinArticleLength: c.cfg.Scrape.MinArticleLength,
	}

	return coinfeed.NewHarvester(source, client, c.tracker, extract.New(c.cfg.Site.Article), hc, c.log, rec), nil
}
