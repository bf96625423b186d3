// Package coinfeed drives scrape runs: discover candidate links, skip the
// ones already seen, then fetch, extract and persist the rest one at a time.
package coinfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/discovery"
	"github.com/pevans/coinfeed/extract"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/metrics"
	"github.com/pevans/coinfeed/tracker"
)

// ArticleFetcher retrieves a single article page.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) ([]byte, error)
}

// HarvestConfig holds the per-run knobs of a Harvester.
type HarvestConfig struct {
	// Articles processed per run when RunOptions.Limit is unset
	Limit int
	// Listing pages walked per run
	MaxPages int
	// Shortest content, in characters, worth storing
	MinArticleLength int
}

// DefaultHarvestConfig returns the defaults of the original tool.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		Limit:            10,
		MaxPages:         10,
		MinArticleLength: 100,
	}
}

// RunOptions selects what a single run processes.
type RunOptions struct {
	Limit      int
	DateFilter DateFilter
}

// RunResult summarises a run.
type RunResult struct {
	RunID       uuid.UUID         `json:"run_id"`
	Discovered  int               `json:"discovered"`
	AlreadySeen int               `json:"already_seen"`
	Attempted   int               `json:"attempted"`
	Saved       int               `json:"saved"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	Articles    []article.Article `json:"articles"`
	Interrupted bool              `json:"interrupted"`
	Duration    time.Duration     `json:"duration"`
}

// Harvester runs scrapes against one site. Runs are sequential; a Harvester
// must not be used by two runs at once.
type Harvester struct {
	source    discovery.Source
	fetcher   ArticleFetcher
	tracker   *tracker.Tracker
	extractor *extract.Extractor
	cfg       HarvestConfig
	log       logger.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewHarvester creates a Harvester. A nil logger or recorder discards
// output.
func NewHarvester(
	source discovery.Source,
	fetcher ArticleFetcher,
	t *tracker.Tracker,
	extractor *extract.Extractor,
	cfg HarvestConfig,
	log logger.Logger,
	rec metrics.Recorder,
) *Harvester {
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}

	return &Harvester{
		source:    source,
		fetcher:   fetcher,
		tracker:   t,
		extractor: extractor,
		cfg:       cfg,
		log:       log.With(logger.String("component", "harvester")),
		metrics:   rec,
		now:       time.Now,
	}
}

// Run performs one scrape. Per-article failures are counted, not returned;
// an error means no candidates could be discovered at all. When ctx is
// cancelled the run stops before the next fetch and reports Interrupted.
func (h *Harvester) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := h.now()
	limit := opts.Limit
	if limit <= 0 {
		limit = h.cfg.Limit
	}

	result := &RunResult{RunID: uuid.New(), Articles: []article.Article{}}
	log := h.log.With(logger.String("run_id", result.RunID.String()))
	log.Info("Scrape run starting",
		logger.Int("limit", limit),
		logger.String("date_filter", opts.DateFilter.String()),
	)

	defer func() {
		result.Duration = h.now().Sub(start)
		h.metrics.RunFinished(result.Interrupted, result.Duration)
	}()

	candidates, err := h.discover(ctx, log, limit*2, opts.DateFilter)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			result.Interrupted = true
			return result, nil
		}
		return result, err
	}
	result.Discovered = len(candidates)
	h.metrics.CandidatesDiscovered(len(candidates))

	queue := h.filter(ctx, candidates, limit, result)
	log.Info("Candidates filtered",
		logger.Int("discovered", result.Discovered),
		logger.Int("already_seen", result.AlreadySeen),
		logger.Int("queued", len(queue)),
	)

	for i, c := range queue {
		if ctx.Err() != nil {
			result.Interrupted = true
			log.Warn("Scrape run interrupted", logger.Int("remaining", len(queue)-i))
			break
		}
		h.process(ctx, log, c, result)
	}

	log.Info("Scrape run finished",
		logger.Int("attempted", result.Attempted),
		logger.Int("saved", result.Saved),
		logger.Int("failed", result.Failed),
		logger.Int("skipped", result.Skipped),
		logger.Bool("interrupted", result.Interrupted),
	)

	return result, nil
}

// discover walks listing pages until target candidates are collected, the
// page cap is hit, a page adds nothing new, or the listing runs past the
// oldest date of interest.
func (h *Harvester) discover(ctx context.Context, log logger.Logger, target int, filter DateFilter) ([]article.Candidate, error) {
	var found []article.Candidate
	seen := make(map[string]bool)
	today := civilDate(h.now())

	for page := 0; page < h.cfg.MaxPages && len(found) < target; page++ {
		batch, err := h.source.Page(ctx, page)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("failed to fetch first listing page: %w", err)
			}
			log.Warn("Listing page failed, stopping discovery", logger.Int("page", page), logger.Error(err))
			break
		}

		added := 0
		for _, c := range batch {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			added++

			published, ok := discovery.DateFromURL(c.URL)
			if !ok {
				published = today
			}
			if filter.Before(published) {
				log.Info("Reached articles older than the date filter",
					logger.String("url", c.URL),
					logger.Int("page", page),
				)
				return truncate(found, target), nil
			}
			if filter.Matches(published) {
				found = append(found, c)
			}
		}

		log.Debug("Listing page scanned",
			logger.Int("page", page),
			logger.Int("links", len(batch)),
			logger.Int("new", added),
			logger.Int("total", len(found)),
		)
		if added == 0 {
			break
		}
	}

	return truncate(found, target), nil
}

// filter drops candidates already in the seen ledger, bumping their
// counters, and caps the rest at limit.
func (h *Harvester) filter(ctx context.Context, candidates []article.Candidate, limit int, result *RunResult) []article.Candidate {
	var queue []article.Candidate
	for _, c := range candidates {
		if h.tracker.WasSeen(ctx, c.URL) {
			h.tracker.RecordSeen(ctx, c.URL)
			result.AlreadySeen++
			h.metrics.ArticleProcessed(metrics.OutcomeAlreadySeen)
			continue
		}
		if len(queue) < limit {
			queue = append(queue, c)
		}
	}
	return queue
}

// process fetches, extracts and persists one candidate.
func (h *Harvester) process(ctx context.Context, log logger.Logger, c article.Candidate, result *RunResult) {
	result.Attempted++
	log = log.With(logger.String("url", c.URL))

	body, err := h.fetcher.FetchArticle(ctx, c.URL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			result.Attempted--
			result.Interrupted = true
			return
		}
		log.Warn("Failed to fetch article", logger.Error(err))
		h.fail(result)
		return
	}

	// The page was retrieved, so it is recorded as seen from here on.
	persistCtx := context.WithoutCancel(ctx)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Warn("Failed to parse article", logger.Error(err))
		h.tracker.RecordSeen(persistCtx, c.URL)
		h.fail(result)
		return
	}

	fields := h.extractor.Fields(doc)
	content := h.extractor.Content(doc)
	h.metrics.ContentExtracted(content.Strategy)

	a := article.New(c.URL, fields.Title, content.Text, fields.Author, fields.PublishedDate, h.now())
	if content.Strategy == "" || a.ContentLength < h.cfg.MinArticleLength {
		log.Info("Article content too short",
			logger.Int("length", a.ContentLength),
			logger.String("strategy", content.Strategy),
		)
		h.tracker.RecordSeen(persistCtx, c.URL)
		h.fail(result)
		return
	}

	switch h.tracker.Persist(persistCtx, a) {
	case tracker.SaveInserted:
		result.Saved++
		result.Articles = append(result.Articles, *a)
		h.metrics.ArticleProcessed(metrics.OutcomeSaved)
		log.Info("Article saved",
			logger.String("title", a.Title),
			logger.String("strategy", content.Strategy),
			logger.Int("length", a.ContentLength),
		)
	case tracker.SaveDuplicate:
		result.Skipped++
		h.metrics.ArticleProcessed(metrics.OutcomeSkipped)
	default:
		h.fail(result)
	}
}

func (h *Harvester) fail(result *RunResult) {
	result.Failed++
	h.metrics.ArticleProcessed(metrics.OutcomeFailed)
}

func truncate(candidates []article.Candidate, n int) []article.Candidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}
