package ranker

import (
	"context"

	"github.com/deusflow/newscurator/internal/news"
)

// Classifier assigns categories and relevance to a batch of candidates.
// Implementations are opaque; only the Request/Pick shape is fixed.
type Classifier interface {
	Classify(ctx context.Context, req Request) ([]Pick, error)
}

// Request is what the classifier sees for one selection.
type Request struct {
	Candidates []news.Candidate
	Constraint news.SelectionConstraint
	Brief      string   // what the feed is about
	Rules      []string // extra feed-specific instructions

	LikedCategories    []string
	DislikedCategories []string
}

// Pick is one classifier choice. Index refers to Request.Candidates; when it
// is missing or out of range the pick is resolved by URL or title.
type Pick struct {
	Index    *int
	URL      string
	Title    string
	Category string
	Score    *float64
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, req Request) ([]Pick, error)

func (f ClassifierFunc) Classify(ctx context.Context, req Request) ([]Pick, error) {
	return f(ctx, req)
}
