package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/news"
)

func article(n int, source, category string) news.Candidate {
	return news.Candidate{
		Title:     "Article " + string(rune('A'+n)),
		URL:       "https://example.com/" + string(rune('a'+n)),
		Source:    source,
		Published: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Category:  category,
		Score:     0.7,
		Boost:     0.1,
	}
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs := NewFileStore(filepath.Join(t.TempDir(), "articles.json"), nil)
	require.NoError(t, fs.Load())
	return fs
}

func TestFileStore_SaveSelectedIgnoresKnownURLs(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	saved, err := fs.SaveSelected(ctx, []news.Candidate{article(0, "Wired", "AI_TECH"), article(1, "Verge", "BUSINESS_TECH")})
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	again := article(0, "Wired", "SPORTS")
	again.Title = "Different title"
	saved, err = fs.SaveSelected(ctx, []news.Candidate{again, article(2, "Ars", "AI_TECH")})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	recent, err := fs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for _, a := range recent {
		if a.URL == again.URL {
			assert.Equal(t, "Article A", a.Title)
			assert.Equal(t, "AI_TECH", a.Category)
		}
	}
	assert.InDelta(t, 0.8, recent[0].RelevanceScore, 1e-9)
}

func TestFileStore_PersistsAcrossLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "articles.json")

	fs := NewFileStore(path, nil)
	require.NoError(t, fs.Load())
	_, err := fs.SaveSelected(ctx, []news.Candidate{article(0, "Wired", "AI_TECH"), article(1, "Verge", "AI_TECH")})
	require.NoError(t, err)
	require.NoError(t, fs.SetFeedback(ctx, article(1, "", "").URL, 1))

	reopened := NewFileStore(path, nil)
	require.NoError(t, reopened.Load())
	st, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.ThumbsUp)
	assert.Equal(t, 2, st.ByCategory["AI_TECH"])

	saved, err := reopened.SaveSelected(ctx, []news.Candidate{article(2, "Ars", "AI_TECH")})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	recent, err := reopened.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(3), recent[0].ID)
}

func TestFileStore_FailedWriteCanBeRetried(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "not-yet")
	path := filepath.Join(dir, "articles.json")
	fs := NewFileStore(path, nil)
	require.NoError(t, fs.Load())

	batch := []news.Candidate{article(0, "Wired", "AI_TECH"), article(1, "Verge", "AI_TECH")}
	saved, err := fs.SaveSelected(ctx, batch)
	require.Error(t, err)
	assert.Zero(t, saved)
	st, err := fs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	saved, err = fs.SaveSelected(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	reopened := NewFileStore(path, nil)
	require.NoError(t, reopened.Load())
	recent, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[0].ID)

	require.NoError(t, os.RemoveAll(dir))
	err = fs.SetFeedback(ctx, batch[0].URL, 1)
	require.Error(t, err)
	st, err = fs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.ThumbsUp, "failed feedback write is not kept in memory")
}

func TestFileStore_LoadEmptyOrMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFileStore(filepath.Join(dir, "missing.json"), nil).Load())

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, NewFileStore(empty, nil).Load())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Error(t, NewFileStore(bad, nil).Load())
}

func TestFileStore_FeedbackAggregates(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)
	_, err := fs.SaveSelected(ctx, []news.Candidate{
		article(0, "Wired", "AI_TECH"),
		article(1, "Wired", "AI_TECH"),
		article(2, "ESPN", "SPORTS"),
		article(3, "Verge", "AI_TECH"),
	})
	require.NoError(t, err)

	require.NoError(t, fs.SetFeedback(ctx, article(0, "", "").URL, 1))
	require.NoError(t, fs.SetFeedback(ctx, article(1, "", "").URL, 1))
	require.NoError(t, fs.SetFeedback(ctx, article(2, "", "").URL, -1))

	byCat, err := fs.FeedbackStats(ctx, feedback.ByCategory)
	require.NoError(t, err)
	assert.Equal(t, []feedback.GroupStats{
		{Key: "AI_TECH", ThumbsUp: 2, Total: 2},
		{Key: "SPORTS", ThumbsDown: 1, Total: 1},
	}, byCat)

	bySrc, err := fs.FeedbackStats(ctx, feedback.BySource)
	require.NoError(t, err)
	require.Len(t, bySrc, 2)
	assert.Equal(t, "ESPN", bySrc[0].Key)

	_, err = fs.FeedbackStats(ctx, feedback.Dimension("author"))
	assert.Error(t, err)

	rated, err := fs.RecentFeedback(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rated, 2)
	assert.Equal(t, "Article C", rated[0].Title)
	assert.Equal(t, -1, rated[0].Feedback)

	// clearing a rating removes it from the aggregates
	require.NoError(t, fs.SetFeedback(ctx, article(2, "", "").URL, 0))
	byCat, err = fs.FeedbackStats(ctx, feedback.ByCategory)
	require.NoError(t, err)
	assert.Len(t, byCat, 1)
}

func TestFileStore_SetFeedbackErrors(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)

	err := fs.SetFeedback(ctx, "https://nowhere.example", 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = fs.SetFeedback(ctx, "https://nowhere.example", 2)
	assert.True(t, errors.Is(err, ErrInvalidRating))
}

func TestFileStore_FeedsAnalyzer(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t)
	_, err := fs.SaveSelected(ctx, []news.Candidate{article(0, "Wired", "AI_TECH"), article(1, "ESPN", "SPORTS")})
	require.NoError(t, err)
	require.NoError(t, fs.SetFeedback(ctx, article(0, "", "").URL, 1))

	in := feedback.NewAnalyzer(fs, nil).Insights(ctx)
	assert.True(t, in.HasFeedback)
	assert.Equal(t, 1, in.Categories["AI_TECH"].ThumbsUp)
	assert.Equal(t, []string{"AI_TECH"}, in.LikedCategories())
}

func TestOpen_PicksFileStoreWithoutDSN(t *testing.T) {
	s, err := Open(context.Background(), "", filepath.Join(t.TempDir(), "s.json"), nil)
	require.NoError(t, err)
	_, ok := s.(*FileStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "", "", nil)
	assert.Error(t, err)
}

func TestInsertArticle_Query(t *testing.T) {
	c := article(0, "Wired", "AI_TECH")
	c.Published = time.Time{}
	fetched := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	query, args, err := insertArticle(c, fetched).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "INSERT INTO articles")
	assert.Contains(t, query, "$8")
	assert.Contains(t, query, "ON CONFLICT (url) DO NOTHING")
	require.Len(t, args, 8)
	assert.Equal(t, c.URL, args[1])
	assert.Equal(t, sql.NullTime{}, args[3])
	assert.InDelta(t, 0.8, args[6], 1e-9)
	assert.Equal(t, fetched, args[7])
}

func TestFeedbackStatsQuery(t *testing.T) {
	b, err := feedbackStatsQuery(feedback.BySource)
	require.NoError(t, err)
	query, args, err := b.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM articles")
	assert.Contains(t, query, "user_feedback <> $1")
	assert.Contains(t, query, "GROUP BY source")
	assert.Equal(t, []interface{}{0}, args)

	_, err = feedbackStatsQuery("nope")
	assert.Error(t, err)
}
