// Package extract pulls article fields out of parsed article pages. Every
// extractor is total: missing markup falls through to the next attempt and
// nothing returns an error.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/scraper"
	"golang.org/x/net/html"
)

// Unextractable is returned as content when every strategy falls short.
const Unextractable = "Content could not be extracted"

// Strategy names, in cascade order.
const (
	StrategyMarker     = "marker"
	StrategyContainer  = "container"
	StrategyParagraphs = "paragraphs"
	StrategyDivText    = "div-text"
	StrategyBody       = "body"
)

// markerBlocks are the ancestors a marker may anchor to.
var markerBlocks = map[string]bool{
	"main":    true,
	"article": true,
	"section": true,
	"div":     true,
}

const (
	divTextMin      = 50
	divTextMax      = 2000
	divTextTop      = 5
	sentenceMin     = 20
	sentenceMax     = 500
	sentenceTop     = 20
	boilerplateTags = "script, style, nav, header, footer, aside"
)

// Strategy is one step of the content cascade. Its output is accepted when
// it is longer than MinLength characters.
type Strategy struct {
	Name      string
	MinLength int
	Extract   func(doc *goquery.Document) string
}

// Result is the cascade outcome. Strategy is empty when Text is
// Unextractable.
type Result struct {
	Text     string
	Strategy string
}

// Attempt records what one strategy produced, accepted or not.
type Attempt struct {
	Strategy string
	Text     string
	Length   int
	Accepted bool
}

// Extractor runs the content cascade and field extractors for one site.
type Extractor struct {
	cfg         scraper.ArticleConfig
	strategies  []Strategy
	titleSuffix *regexp.Regexp
	now         func() time.Time
}

// New creates an extractor from a site's article config. An invalid title
// suffix pattern disables suffix stripping.
func New(cfg scraper.ArticleConfig) *Extractor {
	e := &Extractor{cfg: cfg, now: time.Now}
	if cfg.TitleSuffixPattern != "" {
		e.titleSuffix, _ = regexp.Compile(cfg.TitleSuffixPattern)
	}

	e.strategies = []Strategy{
		{Name: StrategyMarker, MinLength: 200, Extract: e.markerAnchored},
		{Name: StrategyContainer, MinLength: 200, Extract: e.mainContainer},
		{Name: StrategyParagraphs, MinLength: 100, Extract: e.globalParagraphs},
		{Name: StrategyDivText, MinLength: 200, Extract: e.divText},
		{Name: StrategyBody, MinLength: 200, Extract: e.bodyFallback},
	}

	return e
}

// Strategies returns the cascade in order.
func (e *Extractor) Strategies() []Strategy {
	return e.strategies
}

// Content returns the output of the first strategy that clears its
// threshold, or Unextractable.
func (e *Extractor) Content(doc *goquery.Document) Result {
	if doc == nil {
		return Result{Text: Unextractable}
	}

	for _, s := range e.strategies {
		text := s.Extract(doc)
		if article.TextLength(text) > s.MinLength {
			return Result{Text: text, Strategy: s.Name}
		}
	}

	return Result{Text: Unextractable}
}

// Attempts runs every strategy without short-circuiting. Used to debug
// extraction on a single page.
func (e *Extractor) Attempts(doc *goquery.Document) []Attempt {
	attempts := make([]Attempt, 0, len(e.strategies))
	for _, s := range e.strategies {
		text := s.Extract(doc)
		n := article.TextLength(text)
		attempts = append(attempts, Attempt{
			Strategy: s.Name,
			Text:     text,
			Length:   n,
			Accepted: n > s.MinLength,
		})
	}
	return attempts
}

// markerAnchored finds the site's body marker and reads the paragraphs of
// its nearest block ancestor.
func (e *Extractor) markerAnchored(doc *goquery.Document) string {
	if e.cfg.Marker == "" {
		return ""
	}

	var anchor *html.Node
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if skippedElements[goquery.NodeName(s)] {
			return true
		}
		for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && strings.Contains(c.Data, e.cfg.Marker) {
				anchor = c
				return false
			}
		}
		return true
	})
	if anchor == nil {
		return ""
	}

	block := anchor.Parent
	for block != nil && !(block.Type == html.ElementNode && markerBlocks[block.Data]) {
		block = block.Parent
	}
	if block == nil {
		return ""
	}

	return e.paragraphs(doc.FindNodes(block))
}

// mainContainer reads the first node matched by the first container
// selector that matches anything.
func (e *Extractor) mainContainer(doc *goquery.Document) string {
	for _, selector := range e.cfg.ContainerSelectors {
		if match := doc.Find(selector); match.Length() > 0 {
			return e.paragraphs(match.First())
		}
	}
	return ""
}

func (e *Extractor) globalParagraphs(doc *goquery.Document) string {
	return e.paragraphs(doc.Selection)
}

// divText keeps the longest prose-looking div texts.
func (e *Extractor) divText(doc *goquery.Document) string {
	var spans []string
	seen := make(map[string]bool)

	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		text := visibleText(div)
		n := article.TextLength(text)
		if n < divTextMin || n >= divTextMax {
			return
		}
		if !hasTerminator(text) || strings.HasPrefix(text, "[") || seen[text] ||
			containsFold(text, e.cfg.SentenceExclusions) {
			return
		}
		seen[text] = true
		spans = append(spans, text)
	})

	sort.SliceStable(spans, func(i, j int) bool {
		return article.TextLength(spans[i]) > article.TextLength(spans[j])
	})
	if len(spans) > divTextTop {
		spans = spans[:divTextTop]
	}

	return strings.Join(spans, "\n\n")
}

// bodyFallback strips page chrome from a copy of the body and keeps the
// first sentence-sized fragments.
func (e *Extractor) bodyFallback(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}

	clean := body.Clone()
	clean.Find(boilerplateTags).Remove()

	units := strings.FieldsFunc(visibleText(clean), func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var sentences []string
	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		n := article.TextLength(unit)
		if n < sentenceMin || n >= sentenceMax {
			continue
		}
		if strings.HasPrefix(unit, "[") || containsFold(unit, e.cfg.SentenceExclusions) {
			continue
		}
		sentences = append(sentences, unit)
		if len(sentences) == sentenceTop {
			break
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	return strings.Join(sentences, ". ") + "."
}
