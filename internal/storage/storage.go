// Package storage persists selected articles and reads back user feedback.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/news"
)

var (
	ErrNotFound      = errors.New("article not found")
	ErrInvalidRating = errors.New("rating must be -1, 0 or 1")
)

// Store is the persistence sink plus the feedback reader used by the analyzer.
type Store interface {
	feedback.Source

	// SaveSelected inserts articles, ignoring URLs that are already stored.
	SaveSelected(ctx context.Context, cands []news.Candidate) (int, error)
	SetFeedback(ctx context.Context, url string, rating int) error
	Recent(ctx context.Context, limit int) ([]news.PersistedArticle, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats summarises the stored articles.
type Stats struct {
	Total      int            `json:"total"`
	Rated      int            `json:"rated"`
	ThumbsUp   int            `json:"thumbs_up"`
	ThumbsDown int            `json:"thumbs_down"`
	ByCategory map[string]int `json:"by_category"`
}

// Open returns a Postgres store when dsn is set and a file store otherwise.
func Open(ctx context.Context, dsn, file string, log *slog.Logger) (Store, error) {
	if dsn != "" {
		return NewPostgresStore(ctx, dsn, log)
	}
	if file == "" {
		return nil, fmt.Errorf("neither DATABASE_URL nor STORE_FILE is set")
	}
	fs := NewFileStore(file, log)
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func checkRating(rating int) error {
	if rating < -1 || rating > 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return nil
}
