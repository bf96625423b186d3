package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/article"
)

// Meaningful reports whether a paragraph reads like article prose rather
// than page chrome. The phrase list is matched case-insensitively.
func Meaningful(text string, excludePhrases []string) bool {
	if article.TextLength(text) < 20 {
		return false
	}
	// Ticker widgets render as "[BTC $97,000 +1.2%]".
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return false
	}
	if containsFold(text, excludePhrases) {
		return false
	}
	if !hasTerminator(text) {
		return false
	}
	return len(strings.Fields(text)) >= 5
}

// paragraphs returns the meaningful paragraph texts found under sel, joined
// by blank lines.
func (e *Extractor) paragraphs(sel *goquery.Selection) string {
	var kept []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := normalizeSpace(p.Text())
		if Meaningful(text, e.cfg.ExcludePhrases) {
			kept = append(kept, text)
		}
	})
	return strings.Join(kept, "\n\n")
}
