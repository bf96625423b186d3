// Package tracker is the dedup and persistence boundary between a scrape run
// and the article store. Store failures stop here: they are logged and
// turned into safe defaults so a run never aborts on a single bad write.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/store"
)

// SaveOutcome is the result of persisting one article.
type SaveOutcome int

const (
	SaveInserted SaveOutcome = iota
	SaveDuplicate
	SaveFailed
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveInserted:
		return "inserted"
	case SaveDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Tracker wraps a Store.
type Tracker struct {
	store store.Store
	log   logger.Logger
	now   func() time.Time
}

// New creates a tracker. A nil logger discards output.
func New(s store.Store, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{
		store: s,
		log:   log.With(logger.String("component", "tracker")),
		now:   time.Now,
	}
}

// WasSeen reports whether url was considered before. Store errors read as
// not seen, so the URL is retried rather than lost.
func (t *Tracker) WasSeen(ctx context.Context, url string) bool {
	seen, err := t.store.WasSeen(ctx, url)
	if err != nil {
		t.log.Error("Failed to check seen url", logger.String("url", url), logger.Error(err))
		return false
	}
	return seen
}

// RecordSeen adds url to the ledger or bumps its count.
func (t *Tracker) RecordSeen(ctx context.Context, url string) {
	if err := t.store.RecordSeen(ctx, url); err != nil {
		t.log.Error("Failed to record seen url", logger.String("url", url), logger.Error(err))
	}
}

// Persist inserts a and records its URL as seen. Duplicates are recorded as
// seen too; failed inserts are not, so the next run tries again.
func (t *Tracker) Persist(ctx context.Context, a *article.Article) SaveOutcome {
	inserted, err := t.store.InsertArticle(ctx, a)
	if err != nil {
		t.log.Error("Failed to save article", logger.String("url", a.URL), logger.Error(err))
		return SaveFailed
	}

	t.RecordSeen(ctx, a.URL)
	if !inserted {
		t.log.Debug("Article already stored", logger.String("url", a.URL))
		return SaveDuplicate
	}
	return SaveInserted
}

// Save reports whether a new article row was inserted.
func (t *Tracker) Save(ctx context.Context, a *article.Article) bool {
	return t.Persist(ctx, a) == SaveInserted
}

// Article looks up one article. Missing articles and store errors both
// return false.
func (t *Tracker) Article(ctx context.Context, id uuid.UUID) (*article.Article, bool) {
	a, err := t.store.GetArticle(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrArticleNotFound) {
			t.log.Error("Failed to get article", logger.String("id", id.String()), logger.Error(err))
		}
		return nil, false
	}
	return a, true
}

// MarkAnalyzed records the consumer's verdict. The payload is stored as-is.
func (t *Tracker) MarkAnalyzed(ctx context.Context, id uuid.UUID, result json.RawMessage) bool {
	if err := t.store.MarkAnalyzed(ctx, id, result, t.now()); err != nil {
		t.log.Error("Failed to mark article analyzed", logger.String("id", id.String()), logger.Error(err))
		return false
	}
	return true
}

// Unanalyzed returns articles awaiting analysis, newest first. A limit of 0
// means all.
func (t *Tracker) Unanalyzed(ctx context.Context, limit int) []article.Article {
	return t.Articles(ctx, store.Unanalyzed(limit))
}

// Articles lists articles matching filter.
func (t *Tracker) Articles(ctx context.Context, filter store.ArticleFilter) []article.Article {
	articles, err := t.store.ListArticles(ctx, filter)
	if err != nil {
		t.log.Error("Failed to list articles", logger.Error(err))
		return []article.Article{}
	}
	if articles == nil {
		return []article.Article{}
	}
	return articles
}

// CleanupCandidates lists what Cleanup would delete.
func (t *Tracker) CleanupCandidates(ctx context.Context, retentionDays int) []article.Article {
	articles, err := t.store.AnalyzedBefore(ctx, t.cutoff(retentionDays))
	if err != nil {
		t.log.Error("Failed to list expired articles", logger.Error(err))
		return []article.Article{}
	}
	return articles
}

// Cleanup deletes analyzed articles older than retentionDays and returns how
// many were removed. Seen URLs are kept, so deleted articles are never
// fetched again.
func (t *Tracker) Cleanup(ctx context.Context, retentionDays int) int64 {
	n, err := t.store.DeleteAnalyzedBefore(ctx, t.cutoff(retentionDays))
	if err != nil {
		t.log.Error("Failed to clean up articles", logger.Int("retention_days", retentionDays), logger.Error(err))
		return 0
	}
	t.log.Info("Cleaned up analyzed articles",
		logger.Int64("deleted", n),
		logger.Int("retention_days", retentionDays),
	)
	return n
}

// Stats summarises the store; zero values on failure.
func (t *Tracker) Stats(ctx context.Context) article.Stats {
	stats, err := t.store.Stats(ctx)
	if err != nil {
		t.log.Error("Failed to get stats", logger.Error(err))
		return article.Stats{}
	}
	return *stats
}

func (t *Tracker) cutoff(retentionDays int) time.Time {
	if retentionDays < 0 {
		retentionDays = 0
	}
	return t.now().AddDate(0, 0, -retentionDays)
}
