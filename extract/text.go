package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// visibleText joins every text node under the selection with single spaces,
// the way a browser would render inline content.
func visibleText(sel *goquery.Selection) string {
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return normalizeSpace(strings.Join(parts, " "))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsFold(s string, phrases []string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func hasTerminator(s string) bool {
	return strings.ContainsAny(s, ".!?")
}
