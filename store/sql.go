package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pevans/coinfeed/article"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	pingTimeout            = 5 * time.Second
)

// schema is valid in both SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		published_date TEXT NOT NULL DEFAULT '',
		scraped_at TIMESTAMP NOT NULL,
		content_length INTEGER NOT NULL DEFAULT 0,
		is_analyzed BOOLEAN NOT NULL DEFAULT FALSE,
		analyzed_at TIMESTAMP,
		sentiment_result TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_is_analyzed ON articles(is_analyzed)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles(scraped_at)`,
	`CREATE TABLE IF NOT EXISTS scraped_urls (
		url TEXT PRIMARY KEY,
		first_seen_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1
	)`,
}

const articleColumns = `id, url, title, content, author, published_date, scraped_at,
	content_length, is_analyzed, analyzed_at, sentiment_result`

// SQLStore implements Store on any sqlx database. Queries are written with
// ? placeholders and rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database. It does not create the schema.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLite opens (creating if needed) a SQLite database file in WAL mode.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.initSQLite(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLStore) initSQLite(ctx context.Context) error {
	for _, pragma := range []string{"PRAGMA cache_size = 1000", "PRAGMA temp_store = MEMORY"} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return s.InitSchema(ctx)
}

// OpenPostgres connects to PostgreSQL and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the tables and indexes if they don't exist.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WasSeen reports whether url is in the seen ledger.
func (s *SQLStore) WasSeen(ctx context.Context, url string) (bool, error) {
	var n int
	query := s.db.Rebind(`SELECT COUNT(*) FROM scraped_urls WHERE url = ?`)
	if err := s.db.GetContext(ctx, &n, query, url); err != nil {
		return false, fmt.Errorf("failed to check seen url: %w", err)
	}
	return n > 0, nil
}

// RecordSeen upserts the ledger entry for url.
func (s *SQLStore) RecordSeen(ctx context.Context, url string) error {
	now := timestamp(time.Now())
	query := s.db.Rebind(`
		INSERT INTO scraped_urls (url, first_seen_at, last_seen_at, seen_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (url) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			seen_count = scraped_urls.seen_count + 1
	`)
	if _, err := s.db.ExecContext(ctx, query, url, now, now); err != nil {
		return fmt.Errorf("failed to record seen url: %w", err)
	}
	return nil
}

// SeenURL returns the ledger entry for url, or nil.
func (s *SQLStore) SeenURL(ctx context.Context, url string) (*article.SeenURL, error) {
	var row struct {
		URL         string    `db:"url"`
		FirstSeenAt time.Time `db:"first_seen_at"`
		LastSeenAt  time.Time `db:"last_seen_at"`
		SeenCount   int       `db:"seen_count"`
	}
	query := s.db.Rebind(`
		SELECT url, first_seen_at, last_seen_at, seen_count
		FROM scraped_urls WHERE url = ?
	`)
	err := s.db.GetContext(ctx, &row, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seen url: %w", err)
	}

	return &article.SeenURL{
		URL:         row.URL,
		FirstSeenAt: row.FirstSeenAt.UTC(),
		LastSeenAt:  row.LastSeenAt.UTC(),
		SeenCount:   row.SeenCount,
	}, nil
}

// InsertArticle stores a unless its URL already exists. The uniqueness
// constraint decides, so concurrent inserts cannot both win.
func (s *SQLStore) InsertArticle(ctx context.Context, a *article.Article) (bool, error) {
	query := s.db.Rebind(`
		INSERT INTO articles (` + articleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
	`)
	res, err := s.db.ExecContext(ctx, query,
		a.ID.String(),
		a.URL,
		a.Title,
		a.Content,
		a.Author,
		a.PublishedDate,
		timestamp(a.ScrapedAt),
		a.ContentLength,
		a.IsAnalyzed,
		nullTime(a.AnalyzedAt),
		nullJSON(a.SentimentResult),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	return n == 1, nil
}

// GetArticle retrieves an article by ID.
func (s *SQLStore) GetArticle(ctx context.Context, id uuid.UUID) (*article.Article, error) {
	var row articleRow
	query := s.db.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE id = ?`)
	err := s.db.GetContext(ctx, &row, query, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	a, err := row.toArticle()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListArticles lists articles newest-scraped first.
func (s *SQLStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]article.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var args []any

	if filter.Analyzed != nil {
		query += ` WHERE is_analyzed = ?`
		args = append(args, *filter.Analyzed)
	}
	query += ` ORDER BY scraped_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	return s.selectArticles(ctx, s.db.Rebind(query), args...)
}

// MarkAnalyzed flags the article as analyzed.
func (s *SQLStore) MarkAnalyzed(ctx context.Context, id uuid.UUID, result json.RawMessage, at time.Time) error {
	query := s.db.Rebind(`
		UPDATE articles
		SET is_analyzed = ?, analyzed_at = COALESCE(analyzed_at, ?), sentiment_result = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query, true, timestamp(at), nullJSON(result), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark article analyzed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark article analyzed: %w", err)
	}
	if n == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// AnalyzedBefore lists analyzed articles older than cutoff.
func (s *SQLStore) AnalyzedBefore(ctx context.Context, cutoff time.Time) ([]article.Article, error) {
	query := s.db.Rebind(`
		SELECT ` + articleColumns + ` FROM articles
		WHERE is_analyzed = ? AND analyzed_at < ?
		ORDER BY analyzed_at ASC
	`)
	return s.selectArticles(ctx, query, true, timestamp(cutoff))
}

// DeleteAnalyzedBefore deletes analyzed articles older than cutoff.
func (s *SQLStore) DeleteAnalyzedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.db.Rebind(`DELETE FROM articles WHERE is_analyzed = ? AND analyzed_at < ?`)
	res, err := s.db.ExecContext(ctx, query, true, timestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	return n, nil
}

// Stats summarises both tables.
func (s *SQLStore) Stats(ctx context.Context) (*article.Stats, error) {
	var counts struct {
		Total      int `db:"total"`
		Unanalyzed int `db:"unanalyzed"`
	}
	err := s.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_analyzed THEN 0 ELSE 1 END), 0) AS unanalyzed
		FROM articles
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	stats := &article.Stats{
		TotalArticles: counts.Total,
		Unanalyzed:    counts.Unanalyzed,
		Analyzed:      counts.Total - counts.Unanalyzed,
	}

	if err := s.db.GetContext(ctx, &stats.SeenURLs, `SELECT COUNT(*) FROM scraped_urls`); err != nil {
		return nil, fmt.Errorf("failed to count seen urls: %w", err)
	}

	var latest struct {
		Title     string    `db:"title"`
		ScrapedAt time.Time `db:"scraped_at"`
	}
	err = s.db.GetContext(ctx, &latest, `SELECT title, scraped_at FROM articles ORDER BY scraped_at DESC LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to get latest article: %w", err)
	default:
		stats.Latest = &article.Latest{Title: latest.Title, ScrapedAt: latest.ScrapedAt.UTC()}
	}

	return stats, nil
}

func (s *SQLStore) selectArticles(ctx context.Context, query string, args ...any) ([]article.Article, error) {
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]article.Article, 0, len(rows))
	for _, row := range rows {
		a, err := row.toArticle()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// articleRow mirrors the articles table.
type articleRow struct {
	ID              string         `db:"id"`
	URL             string         `db:"url"`
	Title           string         `db:"title"`
	Content         string         `db:"content"`
	Author          string         `db:"author"`
	PublishedDate   string         `db:"published_date"`
	ScrapedAt       time.Time      `db:"scraped_at"`
	ContentLength   int            `db:"content_length"`
	IsAnalyzed      bool           `db:"is_analyzed"`
	AnalyzedAt      sql.NullTime   `db:"analyzed_at"`
	SentimentResult sql.NullString `db:"sentiment_result"`
}

func (r articleRow) toArticle() (article.Article, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return article.Article{}, fmt.Errorf("failed to parse article id %q: %w", r.ID, err)
	}

	a := article.Article{
		ID:            id,
		URL:           r.URL,
		Title:         r.Title,
		Content:       r.Content,
		Author:        r.Author,
		PublishedDate: r.PublishedDate,
		ScrapedAt:     r.ScrapedAt.UTC(),
		ContentLength: r.ContentLength,
		IsAnalyzed:    r.IsAnalyzed,
	}
	if r.AnalyzedAt.Valid {
		t := r.AnalyzedAt.Time.UTC()
		a.AnalyzedAt = &t
	}
	if r.SentimentResult.Valid {
		a.SentimentResult = json.RawMessage(r.SentimentResult.String)
	}
	return a, nil
}

// timestamp normalises times to UTC at microsecond precision so both engines
// store and compare them the same way.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: timestamp(*t), Valid: true}
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
