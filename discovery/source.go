package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/scraper"
)

// PageFetcher retrieves a listing or feed document.
type PageFetcher interface {
	FetchListing(ctx context.Context, url string) ([]byte, error)
}

// Source yields candidates one page at a time. A page with no candidates
// means the source is exhausted.
type Source interface {
	Page(ctx context.Context, page int) ([]article.Candidate, error)
}

// NewSource picks the source matching the profile's discovery mode.
func NewSource(profile *scraper.SiteProfile, fetcher PageFetcher, pageSize int) (Source, error) {
	rules, err := NewRules(profile)
	if err != nil {
		return nil, err
	}

	switch profile.DiscoveryMode {
	case scraper.DiscoveryFeed:
		return &FeedSource{feedURL: profile.FeedURL, fetcher: fetcher, rules: rules}, nil
	case scraper.DiscoveryListing, "":
		return &ListingSource{
			listingURL: profile.ListingURL,
			pageSize:   pageSize,
			fetcher:    fetcher,
			rules:      rules,
		}, nil
	default:
		return nil, fmt.Errorf("unknown discovery mode %q", profile.DiscoveryMode)
	}
}

// ListingSource walks an offset-paginated listing page.
type ListingSource struct {
	listingURL string
	pageSize   int
	fetcher    PageFetcher
	rules      *Rules
}

// PageURL returns the URL of the given zero-based listing page.
func (s *ListingSource) PageURL(page int) string {
	if page <= 0 {
		return s.listingURL
	}

	u, err := url.Parse(s.listingURL)
	if err != nil {
		return s.listingURL
	}
	q := u.Query()
	q.Set("offset", strconv.Itoa(page*s.pageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// Page fetches and scans one listing page.
func (s *ListingSource) Page(ctx context.Context, page int) ([]article.Candidate, error) {
	body, err := s.fetcher.FetchListing(ctx, s.PageURL(page))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	return Discover(doc, s.rules), nil
}

// FeedSource reads candidates from the site's RSS or Atom feed. Feeds are
// not paginated, so only page 0 has candidates.
type FeedSource struct {
	feedURL string
	fetcher PageFetcher
	rules   *Rules
}

// Page returns the feed items that pass the article-URL predicate.
func (s *FeedSource) Page(ctx context.Context, page int) ([]article.Candidate, error) {
	if page > 0 {
		return nil, nil
	}

	body, err := s.fetcher.FetchListing(ctx, s.feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var candidates []article.Candidate
	seen := make(map[string]struct{})
	for _, item := range feed.Items {
		canonical, ok := s.rules.Accept(item.Link)
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}

		title := normalizeSpace(item.Title)
		if article.TextLength(title) < s.rules.minTitleLength {
			continue
		}

		seen[canonical] = struct{}{}
		candidates = append(candidates, article.Candidate{
			URL:     canonical,
			Title:   title,
			RawHref: item.Link,
		})
	}

	return candidates, nil
}
