package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinfeed/article"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errDown = errors.New("database is down")

// brokenStore fails every operation.
type brokenStore struct {
	store.Store
}

func (brokenStore) WasSeen(context.Context, string) (bool, error) { return false, errDown }
func (brokenStore) RecordSeen(context.Context, string) error      { return errDown }
func (brokenStore) InsertArticle(context.Context, *article.Article) (bool, error) {
	return false, errDown
}
func (brokenStore) GetArticle(context.Context, uuid.UUID) (*article.Article, error) {
	return nil, errDown
}
func (brokenStore) ListArticles(context.Context, store.ArticleFilter) ([]article.Article, error) {
	return nil, errDown
}
func (brokenStore) MarkAnalyzed(context.Context, uuid.UUID, json.RawMessage, time.Time) error {
	return errDown
}
func (brokenStore) AnalyzedBefore(context.Context, time.Time) ([]article.Article, error) {
	return nil, errDown
}
func (brokenStore) DeleteAnalyzedBefore(context.Context, time.Time) (int64, error) {
	return 0, errDown
}
func (brokenStore) Stats(context.Context) (*article.Stats, error) { return nil, errDown }

func newArticle(url, title string) *article.Article {
	return article.New(url, title, "Bitcoin rose five percent on Tuesday.", "Jane", "2025-01-15", time.Now())
}

// TestSave_DuplicateReturnsFalse verifies save semantics and that both
// outcomes advance the seen ledger.
func TestSave_DuplicateReturnsFalse(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	tr := New(s, nil)

	assert.True(t, tr.Save(ctx, newArticle("https://example.com/a", "First")))
	assert.False(t, tr.Save(ctx, newArticle("https://example.com/a", "Second")))

	stats := tr.Stats(ctx)
	assert.Equal(t, 1, stats.TotalArticles)

	entry, err := s.SeenURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.SeenCount)
	assert.True(t, tr.WasSeen(ctx, "https://example.com/a"))

	list := tr.Unanalyzed(ctx, 0)
	require.Len(t, list, 1)
	assert.Equal(t, "First", list[0].Title)
}

func TestPersist_Outcomes(t *testing.T) {
	ctx := context.Background()
	tr := New(store.NewMemoryStore(), nil)

	assert.Equal(t, SaveInserted, tr.Persist(ctx, newArticle("https://example.com/a", "A")))
	assert.Equal(t, SaveDuplicate, tr.Persist(ctx, newArticle("https://example.com/a", "A")))
	assert.Equal(t, SaveFailed, New(brokenStore{}, nil).Persist(ctx, newArticle("https://example.com/b", "B")))
	assert.Equal(t, "duplicate", SaveDuplicate.String())
}

// TestMarkAnalyzed_ThenUnanalyzedExcludes covers the consumer round trip.
func TestMarkAnalyzed_ThenUnanalyzedExcludes(t *testing.T) {
	ctx := context.Background()
	tr := New(store.NewMemoryStore(), nil)
	a := newArticle("https://example.com/a", "A")
	b := newArticle("https://example.com/b", "B")
	require.True(t, tr.Save(ctx, a))
	require.True(t, tr.Save(ctx, b))

	assert.True(t, tr.MarkAnalyzed(ctx, a.ID, json.RawMessage(`{"sentiment":"positive"}`)))
	assert.True(t, tr.MarkAnalyzed(ctx, a.ID, json.RawMessage(`{"sentiment":"positive"}`)), "repeat is safe")

	for _, pending := range tr.Unanalyzed(ctx, 10) {
		assert.NotEqual(t, a.ID, pending.ID)
	}
	assert.False(t, tr.MarkAnalyzed(ctx, uuid.New(), nil))
}

// TestCleanup_RetentionDays verifies the cutoff and that seen URLs stay.
func TestCleanup_RetentionDays(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	tr := New(s, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := newArticle("https://example.com/old", "Old")
	fresh := newArticle("https://example.com/fresh", "Fresh")
	require.True(t, tr.Save(ctx, old))
	require.True(t, tr.Save(ctx, fresh))
	require.NoError(t, s.MarkAnalyzed(ctx, old.ID, nil, now.AddDate(0, 0, -8)))
	require.NoError(t, s.MarkAnalyzed(ctx, fresh.ID, nil, now.AddDate(0, 0, -2)))
	tr.now = func() time.Time { return now }

	candidates := tr.CleanupCandidates(ctx, 7)
	require.Len(t, candidates, 1)
	assert.Equal(t, old.ID, candidates[0].ID)

	assert.Equal(t, int64(1), tr.Cleanup(ctx, 7))
	assert.Equal(t, int64(1), tr.Cleanup(ctx, 0), "zero days removes every analyzed article")
	assert.Equal(t, 2, tr.Stats(ctx).SeenURLs)
	assert.True(t, tr.WasSeen(ctx, old.URL))
}

// TestBrokenStore_SafeDefaults verifies store failures degrade instead of
// propagating, and are logged.
func TestBrokenStore_SafeDefaults(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	tr := New(brokenStore{}, logger.FromZap(zap.New(core)))

	assert.False(t, tr.WasSeen(ctx, "https://example.com/a"))
	tr.RecordSeen(ctx, "https://example.com/a")
	assert.False(t, tr.Save(ctx, newArticle("https://example.com/a", "A")))
	assert.False(t, tr.MarkAnalyzed(ctx, uuid.New(), nil))
	assert.Empty(t, tr.Unanalyzed(ctx, 5))
	assert.NotNil(t, tr.Unanalyzed(ctx, 5))
	assert.Empty(t, tr.CleanupCandidates(ctx, 7))
	assert.Equal(t, int64(0), tr.Cleanup(ctx, 7))
	assert.Equal(t, article.Stats{}, tr.Stats(ctx))
	_, ok := tr.Article(ctx, uuid.New())
	assert.False(t, ok)

	assert.GreaterOrEqual(t, logs.Len(), 9)
	assert.Equal(t, "tracker", logs.All()[0].ContextMap()["component"])
}
