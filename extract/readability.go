package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/pevans/coinfeed/article"
)

// Baseline is what a generic readability extractor makes of a page. It is
// shown next to the cascade attempts when tuning a site profile.
type Baseline struct {
	Title  string
	Text   string
	Length int
}

// ReadabilityBaseline runs go-readability over the raw page.
func ReadabilityBaseline(body []byte, pageURL string) (*Baseline, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	doc, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to run readability: %w", err)
	}

	text := normalizeSpace(doc.TextContent)
	return &Baseline{
		Title:  strings.TrimSpace(doc.Title),
		Text:   text,
		Length: article.TextLength(text),
	}, nil
}
