// Package store persists articles and the seen-URL ledger. Engines are
// interchangeable behind the Store interface and behave identically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
)

// Custom errors for store operations
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrUnknownEngine   = errors.New("store type must be sqlite, postgres or memory")
)

// Engine names.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Store is the article store. Each method is atomic on its own; callers
// must not assume transactions span calls.
type Store interface {
	// WasSeen reports whether url has a seen-ledger entry.
	WasSeen(ctx context.Context, url string) (bool, error)
	// RecordSeen inserts url with count 1 or bumps its count and last-seen
	// time.
	RecordSeen(ctx context.Context, url string) error
	// SeenURL returns the ledger entry for url, or nil if there is none.
	SeenURL(ctx context.Context, url string) (*article.SeenURL, error)

	// InsertArticle stores a, returning false without error if an article
	// with the same URL already exists.
	InsertArticle(ctx context.Context, a *article.Article) (bool, error)
	GetArticle(ctx context.Context, id uuid.UUID) (*article.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]article.Article, error)
	// MarkAnalyzed flags an article as analyzed. The first analysis time is
	// kept on repeated calls; the result payload is replaced.
	MarkAnalyzed(ctx context.Context, id uuid.UUID, result json.RawMessage, at time.Time) error

	// AnalyzedBefore lists analyzed articles whose analysis predates cutoff.
	AnalyzedBefore(ctx context.Context, cutoff time.Time) ([]article.Article, error)
	// DeleteAnalyzedBefore removes them. The seen ledger is never touched.
	DeleteAnalyzedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Stats(ctx context.Context) (*article.Stats, error)
	Close() error
}

// ArticleFilter narrows ListArticles. Results are newest-scraped first.
type ArticleFilter struct {
	Analyzed *bool // nil for both
	Limit    int   // 0 for no limit
}

// Unanalyzed returns a filter for articles still waiting for analysis.
func Unanalyzed(limit int) ArticleFilter {
	analyzed := false
	return ArticleFilter{Analyzed: &analyzed, Limit: limit}
}

// Config selects and locates an engine.
type Config struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// Open opens the configured engine and ensures its schema exists.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case EngineSQLite, "":
		return OpenSQLite(ctx, cfg.DSN)
	case EnginePostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Type)
	}
}
