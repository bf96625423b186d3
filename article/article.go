// Package article holds the records that flow through a scrape run and into
// the store.
package article

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DateLayout is the layout of Article.PublishedDate.
const DateLayout = "2006-01-02"

// Candidate is a link discovered on a listing page that is believed to point
// at an article. It is never persisted.
type Candidate struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	RawHref string `json:"raw_href"`
}

// Article is a stored, extracted article.
type Article struct {
	ID              uuid.UUID       `json:"id"`
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	Author          string          `json:"author"`
	PublishedDate   string          `json:"published_date"`
	ScrapedAt       time.Time       `json:"scraped_at"`
	ContentLength   int             `json:"content_length"`
	IsAnalyzed      bool            `json:"is_analyzed"`
	AnalyzedAt      *time.Time      `json:"analyzed_at,omitempty"`
	SentimentResult json.RawMessage `json:"sentiment_result,omitempty"`
}

// New builds an unanalyzed Article with a fresh id. ContentLength is derived
// from content.
func New(url, title, content, author, publishedDate string, scrapedAt time.Time) *Article {
	return &Article{
		ID:            uuid.New(),
		URL:           url,
		Title:         title,
		Content:       content,
		Author:        author,
		PublishedDate: publishedDate,
		ScrapedAt:     scrapedAt.UTC(),
		ContentLength: TextLength(content),
	}
}

// TextLength counts characters, not bytes.
func TextLength(s string) int {
	return utf8.RuneCountInString(s)
}

// SeenURL is the ledger entry for every URL the scraper has considered.
type SeenURL struct {
	URL         string    `json:"url"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	SeenCount   int       `json:"seen_count"`
}

// Stats summarises store contents.
type Stats struct {
	TotalArticles int     `json:"total_articles"`
	Unanalyzed    int     `json:"unanalyzed"`
	Analyzed      int     `json:"analyzed"`
	SeenURLs      int     `json:"seen_urls"`
	Latest        *Latest `json:"latest_article,omitempty"`
}

// Latest identifies the most recently scraped article.
type Latest struct {
	Title     string    `json:"title"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// AnalysisItem is the slice of an Article handed to the sentiment consumer.
type AnalysisItem struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	URL     string    `json:"url"`
}

// ForAnalysis converts articles to analysis items, preserving order.
func ForAnalysis(articles []Article) []AnalysisItem {
	items := make([]AnalysisItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, AnalysisItem{
			ID:      a.ID,
			Title:   a.Title,
			Content: a.Content,
			URL:     a.URL,
		})
	}
	return items
}
