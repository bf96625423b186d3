// Package discovery finds candidate article links on listing pages and feeds.
package discovery

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/scraper"
)

var datePathPattern = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)

// trackingParams are stripped from candidate URLs so the same article
// linked from different placements dedups to one URL.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
}

// Rules is the compiled article-URL predicate for one site.
type Rules struct {
	origin         *url.URL
	exclude        []string
	categories     []string
	minTitleLength int
}

// NewRules compiles the link rules of a site profile.
func NewRules(profile *scraper.SiteProfile) (*Rules, error) {
	origin, err := profile.Origin()
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", profile.BaseURL)
	}

	return &Rules{
		origin:         origin,
		exclude:        profile.Links.ExcludePrefixes,
		categories:     profile.Links.CategoryPrefixes,
		minTitleLength: profile.Links.MinTitleLength,
	}, nil
}

// Resolve turns an href into an absolute same-origin http(s) URL. Empty
// hrefs, in-page anchors, other schemes and off-site links are rejected.
// Accepted URLs carry the origin's scheme and host, so www and bare-host
// spellings of one page resolve to the same URL.
func (r *Rules) Resolve(href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	u := r.origin.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if !sameSite(u.Hostname(), r.origin.Hostname()) {
		return nil, false
	}
	u.Scheme = r.origin.Scheme
	u.Host = r.origin.Host

	return u, true
}

// IsArticlePath reports whether a same-origin path looks like an article:
// not under an excluded prefix, and either dated or under a news category.
func (r *Rules) IsArticlePath(path string) bool {
	if path == "" || path == "/" {
		return false
	}

	for _, prefix := range r.exclude {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	if datePathPattern.MatchString(path) {
		return true
	}

	for _, prefix := range r.categories {
		if strings.HasPrefix(path, prefix) && len(strings.Trim(path[len(prefix):], "/")) > 0 {
			return true
		}
	}

	return false
}

// Accept applies the full predicate to an href and returns the canonical URL.
func (r *Rules) Accept(href string) (string, bool) {
	u, ok := r.Resolve(href)
	if !ok || !r.IsArticlePath(u.Path) {
		return "", false
	}
	return Canonicalize(u), true
}

// Discover scans every hyperlink of a listing page and returns the article
// candidates in document order, deduplicated by URL.
func Discover(doc *goquery.Document, rules *Rules) []article.Candidate {
	var candidates []article.Candidate
	seen := make(map[string]struct{})

	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		canonical, ok := rules.Accept(href)
		if !ok {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}

		title := linkTitle(link)
		if article.TextLength(title) < rules.minTitleLength {
			return
		}

		seen[canonical] = struct{}{}
		candidates = append(candidates, article.Candidate{
			URL:     canonical,
			Title:   title,
			RawHref: href,
		})
	})

	return candidates
}

// linkTitle takes the link text, then the title attribute, then aria-label.
func linkTitle(link *goquery.Selection) string {
	if text := normalizeSpace(link.Text()); text != "" {
		return text
	}
	if title, ok := link.Attr("title"); ok {
		if title = normalizeSpace(title); title != "" {
			return title
		}
	}
	if label, ok := link.Attr("aria-label"); ok {
		return normalizeSpace(label)
	}
	return ""
}

// Canonicalize drops the fragment and tracking parameters.
func Canonicalize(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Host = strings.ToLower(c.Host)

	if c.RawQuery != "" {
		q := c.Query()
		for key := range q {
			if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
				q.Del(key)
			}
		}
		c.RawQuery = q.Encode()
	}

	return c.String()
}

// DateFromURL parses the /YYYY/MM/DD/ segment of an article URL.
func DateFromURL(rawURL string) (time.Time, bool) {
	m := datePathPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return time.Time{}, false
	}

	d, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func sameSite(host, origin string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	origin = strings.TrimPrefix(strings.ToLower(origin), "www.")
	return host != "" && host == origin
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
