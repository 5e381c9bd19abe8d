package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/news"
)

type fileRecord struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	Published      time.Time `json:"published_date"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	RelevanceScore float64   `json:"relevance_score"`
	UserFeedback   int       `json:"user_feedback"`
	FetchedAt      time.Time `json:"fetched_at"`
	Read           bool      `json:"read"`
}

func (r fileRecord) article() news.PersistedArticle {
	return news.PersistedArticle{
		ID:             r.ID,
		Title:          r.Title,
		URL:            r.URL,
		Source:         r.Source,
		Published:      r.Published,
		Description:    r.Description,
		Category:       r.Category,
		RelevanceScore: r.RelevanceScore,
		UserFeedback:   r.UserFeedback,
		FetchedAt:      r.FetchedAt,
		Read:           r.Read,
	}
}

// FileStore keeps articles in a JSON file, for runs without Postgres.
type FileStore struct {
	filePath string
	log      *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	items  []fileRecord
	byURL  map[string]int
	nextID int64
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates an empty store bound to filePath. Call Load to read
// existing contents.
func NewFileStore(filePath string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{
		filePath: filePath,
		log:      log.With("component", "storage"),
		now:      time.Now,
		byURL:    make(map[string]int),
		nextID:   1,
	}
}

// Load reads the file. A missing or empty file is an empty store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []fileRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}

	fs.items = fs.items[:0]
	fs.byURL = make(map[string]int, len(items))
	fs.nextID = 1
	for _, it := range items {
		if _, dup := fs.byURL[it.URL]; dup {
			continue
		}
		fs.byURL[it.URL] = len(fs.items)
		fs.items = append(fs.items, it)
		if it.ID >= fs.nextID {
			fs.nextID = it.ID + 1
		}
	}
	return nil
}

// save writes the file; callers hold the lock.
func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) SaveSelected(_ context.Context, cands []news.Candidate) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fetchedAt := fs.now().UTC()
	prevLen, prevID := len(fs.items), fs.nextID
	saved := 0
	for _, c := range cands {
		if _, dup := fs.byURL[c.URL]; dup {
			continue
		}
		fs.byURL[c.URL] = len(fs.items)
		fs.items = append(fs.items, fileRecord{
			ID:             fs.nextID,
			Title:          c.Title,
			URL:            c.URL,
			Source:         c.Source,
			Published:      c.Published,
			Description:    c.Description,
			Category:       c.Category,
			RelevanceScore: c.EffectiveScore(),
			FetchedAt:      fetchedAt,
		})
		fs.nextID++
		saved++
	}
	if saved == 0 {
		return 0, nil
	}
	if err := fs.save(); err != nil {
		// Undo so a retry sees these URLs as new.
		for _, it := range fs.items[prevLen:] {
			delete(fs.byURL, it.URL)
		}
		fs.items = fs.items[:prevLen]
		fs.nextID = prevID
		return 0, err
	}
	return saved, nil
}

func (fs *FileStore) FeedbackStats(_ context.Context, dim feedback.Dimension) ([]feedback.GroupStats, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	groups := map[string]*feedback.GroupStats{}
	for _, it := range fs.items {
		if it.UserFeedback == 0 {
			continue
		}
		var key string
		switch dim {
		case feedback.ByCategory:
			key = it.Category
		case feedback.BySource:
			key = it.Source
		default:
			return nil, fmt.Errorf("unknown feedback dimension %q", dim)
		}
		g, ok := groups[key]
		if !ok {
			g = &feedback.GroupStats{Key: key}
			groups[key] = g
		}
		g.Total++
		if it.UserFeedback > 0 {
			g.ThumbsUp++
		} else {
			g.ThumbsDown++
		}
	}

	out := make([]feedback.GroupStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// newestFirst orders by fetch time then id, both descending; callers hold the lock.
func (fs *FileStore) newestFirst() []fileRecord {
	out := append([]fileRecord(nil), fs.items...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FetchedAt.Equal(out[j].FetchedAt) {
			return out[i].FetchedAt.After(out[j].FetchedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (fs *FileStore) RecentFeedback(_ context.Context, limit int) ([]feedback.Rated, error) {
	if limit <= 0 {
		limit = feedback.DefaultRecentLimit
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []feedback.Rated
	for _, it := range fs.newestFirst() {
		if it.UserFeedback == 0 {
			continue
		}
		out = append(out, feedback.Rated{Title: it.Title, Category: it.Category, Feedback: it.UserFeedback})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (fs *FileStore) SetFeedback(_ context.Context, url string, rating int) error {
	if err := checkRating(rating); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.byURL[url]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	prev := fs.items[i].UserFeedback
	fs.items[i].UserFeedback = rating
	if err := fs.save(); err != nil {
		fs.items[i].UserFeedback = prev
		return err
	}
	return nil
}

func (fs *FileStore) Recent(_ context.Context, limit int) ([]news.PersistedArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	items := fs.newestFirst()
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]news.PersistedArticle, len(items))
	for i, it := range items {
		out[i] = it.article()
	}
	return out, nil
}

func (fs *FileStore) Stats(context.Context) (Stats, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	st := Stats{Total: len(fs.items), ByCategory: map[string]int{}}
	for _, it := range fs.items {
		st.ByCategory[it.Category]++
		switch {
		case it.UserFeedback > 0:
			st.Rated++
			st.ThumbsUp++
		case it.UserFeedback < 0:
			st.Rated++
			st.ThumbsDown++
		}
	}
	return st, nil
}

func (fs *FileStore) Close() error { return nil }
