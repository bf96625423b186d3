package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/discovery"
)

// Field sentinels.
const (
	UnknownTitle  = "Unknown title"
	UnknownAuthor = "Unknown author"
)

const maxAuthorLength = 100

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	article.DateLayout,
}

// Fields are the per-article values extracted alongside content.
type Fields struct {
	Title         string
	Author        string
	PublishedDate string
}

// Fields runs the title, date and author extractors.
func (e *Extractor) Fields(doc *goquery.Document) Fields {
	return Fields{
		Title:         e.Title(doc),
		Author:        e.Author(doc),
		PublishedDate: e.PublishedDate(doc),
	}
}

// Title tries headings, then og:title, then the document title without the
// site suffix.
func (e *Extractor) Title(doc *goquery.Document) string {
	if doc == nil {
		return UnknownTitle
	}

	var title string
	doc.Find("h1").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := normalizeSpace(h.Text())
		if article.TextLength(text) > e.cfg.MinTitleHeadingSize {
			title = text
			return false
		}
		return true
	})
	if title != "" {
		return title
	}

	if og := metaContent(doc, `meta[property="og:title"]`); og != "" {
		return og
	}

	title = normalizeSpace(doc.Find("title").First().Text())
	if e.titleSuffix != nil {
		title = strings.TrimSpace(e.titleSuffix.ReplaceAllString(title, ""))
	}
	if title != "" {
		return title
	}

	return UnknownTitle
}

// PublishedDate returns the publication date as YYYY-MM-DD. When the page
// carries no usable date, the current date is returned instead.
func (e *Extractor) PublishedDate(doc *goquery.Document) string {
	if doc != nil {
		if t, ok := parseTimestamp(metaContent(doc, `meta[property="article:published_time"]`)); ok {
			return t.Format(article.DateLayout)
		}

		if datetime, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			if t, ok := parseTimestamp(datetime); ok {
				return t.Format(article.DateLayout)
			}
		}

		if canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
			if t, ok := discovery.DateFromURL(canonical); ok {
				return t.Format(article.DateLayout)
			}
		}
	}

	return e.now().Format(article.DateLayout)
}

// Author tries the author meta tag, then the byline selectors.
func (e *Extractor) Author(doc *goquery.Document) string {
	if doc == nil {
		return UnknownAuthor
	}

	if author := metaContent(doc, `meta[name="author"]`); author != "" {
		return author
	}

	for _, selector := range e.cfg.AuthorSelectors {
		match := doc.Find(selector).First()
		if match.Length() == 0 {
			continue
		}

		author := normalizeSpace(match.Text())
		if author == "" {
			author = normalizeSpace(match.AttrOr("data-author", ""))
		}
		if n := article.TextLength(author); n > 0 && n < maxAuthorLength {
			return author
		}
	}

	return UnknownAuthor
}

func metaContent(doc *goquery.Document, selector string) string {
	return normalizeSpace(doc.Find(selector).First().AttrOr("content", ""))
}

// parseTimestamp accepts ISO-8601 timestamps with or without a zone.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
