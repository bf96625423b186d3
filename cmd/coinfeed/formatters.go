package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/coinfeed"
	"github.com/pevans/coinfeed/article"
)

// printRunResult prints a run summary, listing the saved articles when
// verbose.
func printRunResult(result *coinfeed.RunResult, verbose bool) {
	if result.Interrupted {
		fmt.Println("Scrape interrupted:")
	} else {
		fmt.Println("Scrape completed:")
	}
	fmt.Printf("  Discovered:   %d\n", result.Discovered)
	fmt.Printf("  Already seen: %d\n", result.AlreadySeen)
	fmt.Printf("  Attempted:    %d\n", result.Attempted)
	fmt.Printf("  Saved:        %d\n", result.Saved)
	fmt.Printf("  Failed:       %d\n", result.Failed)
	fmt.Printf("  Skipped:      %d\n", result.Skipped)
	fmt.Printf("  Duration:     %s\n", result.Duration.Round(100*time.Millisecond))

	if verbose && len(result.Articles) > 0 {
		fmt.Println()
		printArticleTable(result.Articles)
	}
}

// printStats prints store totals.
func printStats(stats article.Stats, engine string) {
	fmt.Printf("Store:            %s\n", engine)
	fmt.Printf("Total articles:   %d\n", stats.TotalArticles)
	fmt.Printf("Unanalyzed:       %d\n", stats.Unanalyzed)
	fmt.Printf("Analyzed:         %d\n", stats.Analyzed)
	fmt.Printf("Seen URLs:        %d\n", stats.SeenURLs)
	if stats.Latest != nil {
		fmt.Printf("Latest article:   %s (%s)\n",
			truncate(stats.Latest.Title, 70),
			stats.Latest.ScrapedAt.Local().Format("2006-01-02 15:04"),
		)
	}
}

// printArticleTable prints articles in a human-readable table.
func printArticleTable(articles []article.Article) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Title", "Published", "Length", "Analyzed"})

	for _, a := range articles {
		t.AppendRow(table.Row{
			shortID(a.ID.String()),
			truncate(a.Title, 60),
			a.PublishedDate,
			a.ContentLength,
			a.IsAnalyzed,
		})
	}

	t.Render()
}
