package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/coinfeed/extract"
	"github.com/pevans/coinfeed/fetcher"
	"github.com/spf13/cobra"
)

func newInspectCommand(c *cli) *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Show how one article page is extracted",
		Long: `Fetch one article page and print every content strategy's result, the
extracted fields and a readability baseline. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			pageURL := args[0]

			client := fetcher.New(c.cfg.Fetcher(), c.log)
			body, err := client.Fetch(cmd.Context(), pageURL)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
			}

			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to parse page: %w", err)
			}

			e := extract.New(c.cfg.Site.Article)
			fields := e.Fields(doc)
			result := e.Content(doc)

			fmt.Printf("URL:       %s\n", pageURL)
			fmt.Printf("Title:     %s\n", fields.Title)
			fmt.Printf("Author:    %s\n", fields.Author)
			fmt.Printf("Published: %s\n", fields.PublishedDate)
			fmt.Println()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Strategy", "Min", "Length", "Accepted", "Preview"})
			strategies := e.Strategies()
			for i, a := range e.Attempts(doc) {
				t.AppendRow(table.Row{a.Strategy, strategies[i].MinLength, a.Length, a.Accepted, truncate(a.Text, 60)})
			}
			t.Render()

			fmt.Println()
			if result.Strategy == "" {
				fmt.Println("Selected: none (content could not be extracted)")
			} else {
				fmt.Printf("Selected: %s\n", result.Strategy)
			}

			if baseline, err := extract.ReadabilityBaseline(body, pageURL); err != nil {
				fmt.Printf("Readability: unavailable (%v)\n", err)
			} else {
				fmt.Printf("Readability: %d characters, title %q\n", baseline.Length, baseline.Title)
			}

			if showText && result.Strategy != "" {
				fmt.Println()
				fmt.Println(wrapText(result.Text, 80))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "print the selected content")
	return cmd
}
