package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prose1 = "Bitcoin rose five percent on Tuesday as institutional investors returned."
	prose2 = "Ether followed with a smaller gain while trading volumes stayed thin overall."
	prose3 = "Analysts said the move reflected renewed demand for spot exchange-traded funds."
)

func newTestExtractor() *Extractor {
	return New(scraper.DefaultProfile().Article)
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMeaningful(t *testing.T) {
	phrases := scraper.DefaultProfile().Article.ExcludePhrases

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"prose", prose1, true},
		{"exclamation counts", "Traders cheered the surprise approval today!", true},
		{"too short", "Prices rose.", false},
		{"ticker", "[BTC $97,000.00 +1.2% ETH $3,400.00]", false},
		{"subscribe prompt", "Subscribe to get the latest crypto market analysis.", false},
		{"case-insensitive phrase", "Please READ MORE about our coverage of markets.", false},
		{"no terminator", "Bitcoin rose five percent on Tuesday morning", false},
		{"too few words", "Supercalifragilistic-expialidocious-ness, truly.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Meaningful(tt.text, phrases))
		})
	}
}

// TestContent_MarkerShortCircuits verifies the marker strategy wins when it
// has enough text, even though later strategies would also succeed.
func TestContent_MarkerShortCircuits(t *testing.T) {
	doc := parseDoc(t, `<html><head><script>var s = "What to know:";</script></head><body>
		<article>
			<div class="story">
				<p><strong>What to know:</strong></p>
				<p>`+prose1+`</p>
				<p>`+prose2+`</p>
				<p>`+prose3+`</p>
			</div>
		</article>
	</body></html>`)

	got := newTestExtractor().Content(doc)

	assert.Equal(t, StrategyMarker, got.Strategy)
	assert.Equal(t, prose1+"\n\n"+prose2+"\n\n"+prose3, got.Text)
	assert.Greater(t, article.TextLength(got.Text), 200)
}

func TestContent_ContainerStrategy(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<nav><p>Back to menu and other navigation links here.</p></nav>
		<article>
			<p>`+prose1+`</p>
			<p>`+prose2+`</p>
			<p>`+prose3+`</p>
			<p>Sign up for our newsletter to get the latest news.</p>
		</article>
	</body></html>`)

	got := newTestExtractor().Content(doc)

	assert.Equal(t, StrategyContainer, got.Strategy)
	assert.NotContains(t, got.Text, "newsletter")
	assert.Contains(t, got.Text, prose2)
}

// TestContent_ShortContainerFallsThrough verifies a matched but thin
// container does not stop the cascade.
func TestContent_ShortContainerFallsThrough(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<main><p>Only one meaningful paragraph lives inside main here.</p></main>
		<div><p>`+prose1+`</p><p>`+prose2+`</p></div>
	</body></html>`)

	got := newTestExtractor().Content(doc)

	assert.Equal(t, StrategyParagraphs, got.Strategy)
	assert.True(t, strings.HasPrefix(got.Text, "Only one meaningful paragraph"))
}

// TestContent_GlobalParagraphs covers a page with no container: fifteen
// paragraphs of which six pass the filter.
func TestContent_GlobalParagraphs(t *testing.T) {
	kept := []string{
		"Solana gained two percent during the session.",
		"Dogecoin slipped after a large holder moved coins.",
		"Traders priced in a rate cut at the next meeting.",
		"Stablecoin supply grew for the third straight week.",
		"Miners sold more coins than they produced in May.",
		"Funding rates turned positive across major venues.",
	}
	dropped := []string{
		"Menu",
		"Sign up for the daily newsletter right now.",
		"[BTC $97,000 +1.2%]",
		"Markets Policy Tech Business Layer 2",
		"Click here to learn about our latest events.",
		"Cookie settings are available in your account.",
		"Share this story with all of your friends.",
		"Short one.",
		"Watch the full interview with the founder now.",
	}

	var b strings.Builder
	b.WriteString("<html><body><div class=\"page\">")
	for i := range 15 {
		if i%2 == 0 && i/2 < len(kept) {
			b.WriteString("<p>" + kept[i/2] + "</p>")
		}
		if i < len(dropped) {
			b.WriteString("<p>" + dropped[i] + "</p>")
		}
	}
	b.WriteString("</div></body></html>")

	doc := parseDoc(t, b.String())
	require.Equal(t, 15, doc.Find("p").Length())

	got := newTestExtractor().Content(doc)

	assert.Equal(t, StrategyParagraphs, got.Strategy)
	assert.Equal(t, strings.Join(kept, "\n\n"), got.Text)
	assert.GreaterOrEqual(t, article.TextLength(got.Text), 200)
}

func TestContent_DivText(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="wrap">
			<div>`+prose1+`</div>
			<div>`+prose2+`</div>
			<div>`+prose3+`</div>
		</div>
		<div>[BTC $97,000 +1.2%] [ETH $3,400 -0.4%] [SOL $190 +2.1%] price ticker.</div>
		<div>A short div.</div>
	</body></html>`)

	got := newTestExtractor().Content(doc)

	require.Equal(t, StrategyDivText, got.Strategy)
	parts := strings.Split(got.Text, "\n\n")
	require.Len(t, parts, 4)
	assert.Equal(t, prose1+" "+prose2+" "+prose3, parts[0], "longest span first")
	assert.Equal(t, prose3, parts[1])
	assert.NotContains(t, got.Text, "ticker")
}

func TestDivText_SkipsExcludedSentences(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div>`+prose1+`</div>
		<div>Get the day's biggest crypto stories delivered to your inbox every morning. See all newsletters.</div>
		<div>We use cookies to improve your experience on our site. Sign up to manage your preferences.</div>
	</body></html>`)

	got := newTestExtractor().divText(doc)

	assert.Equal(t, prose1, got)
}

// TestContent_BodyFallback verifies chrome is stripped and sentences are
// rejoined, without mutating the parsed document.
func TestContent_BodyFallback(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<header><h1>Record volume lifts exchange shares</h1></header>
		<nav>Sign up today. Markets. Policy.</nav>
		<section><span>The exchange reported record volume this quarter. Regulators approved the new custody framework today!
		Several banks plan to offer crypto trading soon. Hi. Market makers widened spreads during the selloff.
		Developers shipped a long awaited network upgrade? Token holders voted to reduce issuance next year.
		Lenders tightened collateral rules after losses. The index closed higher for the fourth session.
		Sign up for alerts on every market move you care about.</span></section>
		<footer>Copyright notice for the whole site and its owners.</footer>
	</body></html>`)

	e := newTestExtractor()
	got := e.Content(doc)

	require.Equal(t, StrategyBody, got.Strategy)
	assert.True(t, strings.HasPrefix(got.Text, "The exchange reported record volume this quarter. Regulators approved"))
	assert.True(t, strings.HasSuffix(got.Text, "The index closed higher for the fourth session."))
	assert.NotContains(t, got.Text, "Copyright")
	assert.NotContains(t, got.Text, "Sign up")
	assert.Equal(t, "Record volume lifts exchange shares", e.Title(doc))
}

// TestContent_Total verifies the cascade always returns a string.
func TestContent_Total(t *testing.T) {
	e := newTestExtractor()

	for _, html := range []string{
		"",
		"<html><body></body></html>",
		"<html><body><p>tiny</p></body></html>",
		"<<<not really html>>>",
	} {
		got := e.Content(parseDoc(t, html))
		assert.Equal(t, Unextractable, got.Text, "input %q", html)
		assert.Empty(t, got.Strategy)
	}

	assert.Equal(t, Unextractable, e.Content(nil).Text)
}

func TestAttempts_ReportsEveryStrategy(t *testing.T) {
	doc := parseDoc(t, `<html><body><article><p>`+prose1+`</p><p>`+prose2+`</p><p>`+prose3+`</p></article></body></html>`)

	attempts := newTestExtractor().Attempts(doc)

	require.Len(t, attempts, 5)
	assert.Equal(t, StrategyMarker, attempts[0].Strategy)
	assert.False(t, attempts[0].Accepted)
	assert.True(t, attempts[1].Accepted)
	assert.True(t, attempts[2].Accepted)
	assert.Equal(t, article.TextLength(attempts[1].Text), attempts[1].Length)
}

// TestStrategies_ConfigurablePhrases verifies phrase tables come from the
// site profile.
func TestStrategies_ConfigurablePhrases(t *testing.T) {
	cfg := scraper.DefaultProfile().Article
	cfg.ExcludePhrases = []string{"institutional"}
	e := New(cfg)

	doc := parseDoc(t, `<html><body><p>`+prose1+`</p><p>`+prose2+`</p><p>`+prose3+`</p></body></html>`)
	got := e.Content(doc)

	assert.Equal(t, StrategyParagraphs, got.Strategy)
	assert.NotContains(t, got.Text, "institutional")
}
