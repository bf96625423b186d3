package discovery

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules(t *testing.T) *Rules {
	t.Helper()
	rules, err := NewRules(scraper.DefaultProfile())
	require.NoError(t, err)
	return rules
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNewRules_RequiresAbsoluteBaseURL(t *testing.T) {
	for _, base := range []string{"", "/relative/path", "://bad"} {
		profile := scraper.DefaultProfile()
		profile.BaseURL = base
		_, err := NewRules(profile)
		assert.Error(t, err, "base %q", base)
	}
}

// TestAccept_Predicate verifies each branch of the article-URL predicate.
func TestAccept_Predicate(t *testing.T) {
	rules := testRules(t)

	tests := []struct {
		href string
		want bool
	}{
		{"/markets/2025/01/15/bitcoin-hits-new-high", true},
		{"https://www.coindesk.com/policy/2025/01/15/sec-rule", true},
		{"https://coindesk.com/tech/ethereum-upgrade-ships", true},
		{"/business/2024/12/31/exchange-profits/#comments", true},
		{"/daybook-us/2025/01/02/a", true},
		{"/markets/", false},
		{"/newsletters/the-node", false},
		{"/author/jane-doe", false},
		{"/tag/bitcoin/2025/01/15/x/", false},
		{"/price/bitcoin", false},
		{"/_next/static/chunk.js", false},
		{"/api/v1/articles", false},
		{"/search?q=btc", false},
		{"#top", false},
		{"", false},
		{"/", false},
		{"mailto:tips@coindesk.com", false},
		{"tel:+15555555", false},
		{"javascript:void(0)", false},
		{"https://twitter.com/markets/2025/01/15/post", false},
		{"https://evil-coindesk.com/markets/2025/01/15/x", false},
		{"/learn/what-is-bitcoin", false},
	}

	for _, tt := range tests {
		_, got := rules.Accept(tt.href)
		assert.Equal(t, tt.want, got, "href %q", tt.href)
	}
}

// TestAccept_CanonicalURL verifies relative hrefs are resolved and
// fragments and trackers are dropped.
func TestAccept_CanonicalURL(t *testing.T) {
	rules := testRules(t)

	got, ok := rules.Accept("/markets/2025/01/15/btc/?utm_source=x&id=3#section")
	require.True(t, ok)
	assert.Equal(t, "https://www.coindesk.com/markets/2025/01/15/btc/?id=3", got)
}

// TestAccept_CanonicalHost verifies host spellings of the same site resolve
// to the base URL's scheme and host.
func TestAccept_CanonicalHost(t *testing.T) {
	rules := testRules(t)

	for _, href := range []string{
		"https://coindesk.com/markets/2025/06/10/bitcoin-rallies/",
		"http://www.coindesk.com/markets/2025/06/10/bitcoin-rallies/",
		"https://WWW.CoinDesk.com/markets/2025/06/10/bitcoin-rallies/",
	} {
		got, ok := rules.Accept(href)
		require.True(t, ok, href)
		assert.Equal(t, "https://www.coindesk.com/markets/2025/06/10/bitcoin-rallies/", got, href)
	}
}

func TestDiscover_DedupsAcrossHostSpellings(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<a href="https://www.coindesk.com/markets/2025/06/10/bitcoin-rallies/">Bitcoin rallies as ETF inflows return</a>
		<a href="https://coindesk.com/markets/2025/06/10/bitcoin-rallies/">Bitcoin rallies as ETF inflows return</a>
	</body></html>`)

	got := Discover(doc, testRules(t))

	require.Len(t, got, 1)
	assert.Equal(t, "https://www.coindesk.com/markets/2025/06/10/bitcoin-rallies/", got[0].URL)
}

// TestDiscover_FiltersAndDedups verifies title rules, ordering and dedup.
func TestDiscover_FiltersAndDedups(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<a href="/markets/2025/01/15/first-story/"><img src="x.png"></a>
		<a href="/markets/2025/01/15/first-story/">Bitcoin climbs above $100,000 again</a>
		<a href="/policy/2025/01/14/second-story/" title="Regulators publish new stablecoin guidance"></a>
		<a href="/tech/2025/01/14/third-story/" aria-label="Ethereum developers schedule upgrade"></a>
		<a href="/markets/2025/01/15/first-story/#comments">Bitcoin climbs above $100,000 again</a>
		<a href="/markets/2025/01/13/short/">Short</a>
		<a href="/newsletters/daily">Sign up for our daily newsletter today</a>
		<a>No href link with a long enough title</a>
	</body></html>`)

	got := Discover(doc, testRules(t))

	require.Len(t, got, 3)
	assert.Equal(t, "https://www.coindesk.com/markets/2025/01/15/first-story/", got[0].URL)
	assert.Equal(t, "Bitcoin climbs above $100,000 again", got[0].Title)
	assert.Equal(t, "/markets/2025/01/15/first-story/", got[0].RawHref)
	assert.Equal(t, "Regulators publish new stablecoin guidance", got[1].Title)
	assert.Equal(t, "Ethereum developers schedule upgrade", got[2].Title)
}

// TestDiscover_AcceptedURLsSatisfyPredicate checks every accepted URL is
// same-origin, not excluded, and dated or categorised.
func TestDiscover_AcceptedURLsSatisfyPredicate(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<a href="/markets/2025/01/15/a-long-article-title/">A long article title here</a>
		<a href="/web3/nft-market-rebounds">NFT market rebounds after slump</a>
		<a href="/events/consensus-2025">Consensus 2025 tickets on sale now</a>
		<a href="https://other.com/markets/2025/01/15/x">Off-site article with long title</a>
		<a href="/about/team">Meet the team behind the newsroom</a>
	</body></html>`)
	rules := testRules(t)
	profile := scraper.DefaultProfile()

	got := Discover(doc, rules)
	require.Len(t, got, 2)

	for _, c := range got {
		u, err := url.Parse(c.URL)
		require.NoError(t, err)
		assert.Equal(t, "www.coindesk.com", u.Host)
		for _, prefix := range profile.Links.ExcludePrefixes {
			assert.False(t, strings.HasPrefix(u.Path, prefix), "%s under %s", c.URL, prefix)
		}
		_, dated := DateFromURL(c.URL)
		categorised := false
		for _, prefix := range profile.Links.CategoryPrefixes {
			categorised = categorised || strings.HasPrefix(u.Path, prefix)
		}
		assert.True(t, dated || categorised, c.URL)
	}
}

func TestDateFromURL(t *testing.T) {
	d, ok := DateFromURL("https://www.coindesk.com/markets/2025/01/15/story/")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), d)

	_, ok = DateFromURL("https://www.coindesk.com/markets/story")
	assert.False(t, ok)

	_, ok = DateFromURL("https://www.coindesk.com/markets/2025/13/45/bad/")
	assert.False(t, ok)
}
