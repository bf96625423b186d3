package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
)

// MemoryStore keeps everything in process memory. It backs runs without a
// database and tests that don't care about SQL.
type MemoryStore struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*article.Article
	byURL    map[string]uuid.UUID
	seen     map[string]*article.SeenURL
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[uuid.UUID]*article.Article),
		byURL:    make(map[string]uuid.UUID),
		seen:     make(map[string]*article.SeenURL),
	}
}

func (m *MemoryStore) WasSeen(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[url]
	return ok, nil
}

func (m *MemoryStore) RecordSeen(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := timestamp(time.Now())
	if entry, ok := m.seen[url]; ok {
		entry.LastSeenAt = now
		entry.SeenCount++
		return nil
	}
	m.seen[url] = &article.SeenURL{URL: url, FirstSeenAt: now, LastSeenAt: now, SeenCount: 1}
	return nil
}

func (m *MemoryStore) SeenURL(_ context.Context, url string) (*article.SeenURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.seen[url]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (m *MemoryStore) InsertArticle(_ context.Context, a *article.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[a.URL]; exists {
		return false, nil
	}

	cp := cloneArticle(*a)
	cp.ScrapedAt = timestamp(cp.ScrapedAt)
	m.articles[cp.ID] = &cp
	m.byURL[cp.URL] = cp.ID
	return true, nil
}

func (m *MemoryStore) GetArticle(_ context.Context, id uuid.UUID) (*article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.articles[id]
	if !ok {
		return nil, ErrArticleNotFound
	}
	cp := cloneArticle(*a)
	return &cp, nil
}

func (m *MemoryStore) ListArticles(_ context.Context, filter ArticleFilter) ([]article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.collect(func(a *article.Article) bool {
		return filter.Analyzed == nil || a.IsAnalyzed == *filter.Analyzed
	}, filter.Limit), nil
}

func (m *MemoryStore) MarkAnalyzed(_ context.Context, id uuid.UUID, result json.RawMessage, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.articles[id]
	if !ok {
		return ErrArticleNotFound
	}

	a.IsAnalyzed = true
	if a.AnalyzedAt == nil {
		t := timestamp(at)
		a.AnalyzedAt = &t
	}
	a.SentimentResult = nil
	if len(result) > 0 {
		a.SentimentResult = append(json.RawMessage(nil), result...)
	}
	return nil
}

func (m *MemoryStore) AnalyzedBefore(_ context.Context, cutoff time.Time) ([]article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.collect(func(a *article.Article) bool { return expired(a, cutoff) }, 0)
	sort.SliceStable(list, func(i, j int) bool { return list[i].AnalyzedAt.Before(*list[j].AnalyzedAt) })
	return list, nil
}

func (m *MemoryStore) DeleteAnalyzedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, a := range m.articles {
		if expired(a, cutoff) {
			delete(m.articles, id)
			delete(m.byURL, a.URL)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Stats(_ context.Context) (*article.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &article.Stats{TotalArticles: len(m.articles), SeenURLs: len(m.seen)}
	for _, a := range m.articles {
		if a.IsAnalyzed {
			stats.Analyzed++
		} else {
			stats.Unanalyzed++
		}
		if stats.Latest == nil || a.ScrapedAt.After(stats.Latest.ScrapedAt) {
			stats.Latest = &article.Latest{Title: a.Title, ScrapedAt: a.ScrapedAt}
		}
	}
	return stats, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// collect returns matching articles newest-scraped first. Callers hold mu.
func (m *MemoryStore) collect(match func(*article.Article) bool, limit int) []article.Article {
	list := make([]article.Article, 0)
	for _, a := range m.articles {
		if match(a) {
			list = append(list, cloneArticle(*a))
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ScrapedAt.After(list[j].ScrapedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func expired(a *article.Article, cutoff time.Time) bool {
	return a.IsAnalyzed && a.AnalyzedAt != nil && a.AnalyzedAt.Before(timestamp(cutoff))
}

func cloneArticle(a article.Article) article.Article {
	if a.AnalyzedAt != nil {
		t := *a.AnalyzedAt
		a.AnalyzedAt = &t
	}
	if a.SentimentResult != nil {
		a.SentimentResult = append(json.RawMessage(nil), a.SentimentResult...)
	}
	return a
}
