package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// Discovery modes.
const (
	DiscoveryListing = "listing"
	DiscoveryFeed    = "feed"
)

// SiteProfile defines everything site-specific about scraping one news site:
// where candidates come from, which URLs count as articles, and the phrase
// tables the content extractor uses to drop boilerplate. Everything else in
// coinfeed is site-agnostic.
type SiteProfile struct {
	Name          string `yaml:"name" json:"name"`
	BaseURL       string `yaml:"base_url" json:"base_url"`
	DiscoveryMode string `yaml:"discovery_mode" json:"discovery_mode"` // "listing" or "feed"
	ListingURL    string `yaml:"listing_url" json:"listing_url"`
	FeedURL       string `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`

	Links   LinkConfig    `yaml:"links" json:"links"`
	Article ArticleConfig `yaml:"article" json:"article"`
}

// LinkConfig drives the article-URL predicate.
type LinkConfig struct {
	ExcludePrefixes  []string `yaml:"exclude_prefixes" json:"exclude_prefixes"`
	CategoryPrefixes []string `yaml:"category_prefixes" json:"category_prefixes"`
	MinTitleLength   int      `yaml:"min_title_length" json:"min_title_length"`
}

// ArticleConfig drives content and field extraction on article pages.
type ArticleConfig struct {
	// Marker is text that precedes the article body on this site.
	Marker              string   `yaml:"marker" json:"marker"`
	ContainerSelectors  []string `yaml:"container_selectors" json:"container_selectors"`
	ExcludePhrases      []string `yaml:"exclude_phrases" json:"exclude_phrases"`
	SentenceExclusions  []string `yaml:"sentence_exclusions" json:"sentence_exclusions"`
	AuthorSelectors     []string `yaml:"author_selectors" json:"author_selectors"`
	TitleSuffixPattern  string   `yaml:"title_suffix_pattern" json:"title_suffix_pattern"`
	MinTitleHeadingSize int      `yaml:"min_title_heading_length" json:"min_title_heading_length"`
}

// DefaultProfile returns the CoinDesk profile.
func DefaultProfile() *SiteProfile {
	return &SiteProfile{
		Name:          "CoinDesk",
		BaseURL:       "https://www.coindesk.com",
		DiscoveryMode: DiscoveryListing,
		ListingURL:    "https://www.coindesk.com/latest-crypto-news",
		FeedURL:       "https://www.coindesk.com/arc/outboundfeeds/rss/",
		Links: LinkConfig{
			ExcludePrefixes: []string{
				"/newsletters/", "/podcasts/", "/events/", "/about/", "/careers/",
				"/advertise/", "/price/", "/author/", "/tag/", "/sponsored-content/",
				"/_next/", "/api/", "/search", "/privacy", "/terms",
			},
			CategoryPrefixes: []string{
				"/markets/", "/policy/", "/tech/", "/business/", "/layer2/", "/web3/", "/daybook",
			},
			MinTitleLength: 15,
		},
		Article: ArticleConfig{
			Marker: "What to know:",
			ContainerSelectors: []string{
				"main",
				"article",
				`[role="main"]`,
				".article-content",
				".post-content",
				".entry-content",
				`div[data-module="ArticleBody"]`,
			},
			ExcludePhrases: []string{
				"Sign up", "Subscribe", "Newsletter", "See all newsletters", "Don't miss",
				"By signing up", "privacy policy", "terms of use", "Cookie", "Advertisement",
				"Sponsored", "Follow us", "Share this", "Read more", "Click here",
				"Download", "Watch", "Listen", "Back to menu", "What to know:", "See more",
			},
			SentenceExclusions: []string{"See all newsletters", "Sign up"},
			AuthorSelectors: []string{
				".author-name",
				".byline",
				`a[href*="/author/"]`,
				"[data-author]",
			},
			TitleSuffixPattern:  `\s*\|\s*CoinDesk.*$`,
			MinTitleHeadingSize: 10,
		},
	}
}

// Validate checks that the profile can drive a run.
func (p *SiteProfile) Validate() error {
	base, err := url.Parse(p.BaseURL)
	if err != nil || base.Host == "" {
		return fmt.Errorf("invalid base_url %q", p.BaseURL)
	}

	switch p.DiscoveryMode {
	case DiscoveryListing:
		if p.ListingURL == "" {
			return errors.New("listing_url is required for listing discovery")
		}
	case DiscoveryFeed:
		if p.FeedURL == "" {
			return errors.New("feed_url is required for feed discovery")
		}
	default:
		return fmt.Errorf("discovery_mode must be %q or %q", DiscoveryListing, DiscoveryFeed)
	}

	if p.Article.TitleSuffixPattern != "" {
		if _, err := regexp.Compile(p.Article.TitleSuffixPattern); err != nil {
			return fmt.Errorf("invalid title_suffix_pattern: %w", err)
		}
	}

	return nil
}

// Origin returns the parsed base URL.
func (p *SiteProfile) Origin() (*url.URL, error) {
	return url.Parse(p.BaseURL)
}
