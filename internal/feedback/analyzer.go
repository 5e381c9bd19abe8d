package feedback

import (
	"context"
	"log/slog"
	"sort"
)

// Dimension selects how feedback is grouped.
type Dimension string

const (
	ByCategory Dimension = "category"
	BySource   Dimension = "source"
)

// GroupStats are raw thumbs counts for one category or source.
type GroupStats struct {
	Key        string
	ThumbsUp   int
	ThumbsDown int
	Total      int
}

// Rated is a stored article title with the user's rating.
type Rated struct {
	Title    string
	Category string
	Feedback int
}

// Source reads historical feedback.
type Source interface {
	// FeedbackStats aggregates rows with non-zero feedback by dimension.
	FeedbackStats(ctx context.Context, dim Dimension) ([]GroupStats, error)
	// RecentFeedback returns rated rows, most recently fetched first.
	RecentFeedback(ctx context.Context, limit int) ([]Rated, error)
}

// Stats summarises feedback for one key.
type Stats struct {
	ThumbsUp   int     `json:"thumbs_up"`
	ThumbsDown int     `json:"thumbs_down"`
	Total      int     `json:"total"`
	NetScore   int     `json:"net_score"`
	Ratio      float64 `json:"ratio"`
}

// Insights is an immutable snapshot of user preferences for one run.
type Insights struct {
	Categories       map[string]Stats `json:"category_feedback"`
	Sources          map[string]Stats `json:"source_feedback"`
	LikedKeywords    map[string]int   `json:"liked_keywords"`
	DislikedKeywords map[string]int   `json:"disliked_keywords"`
	HasFeedback      bool             `json:"has_feedback"`
}

// Empty returns insights with no feedback.
func Empty() Insights {
	return Insights{
		Categories:       map[string]Stats{},
		Sources:          map[string]Stats{},
		LikedKeywords:    map[string]int{},
		DislikedKeywords: map[string]int{},
	}
}

// LikedCategories lists categories with positive net score, best first.
func (in Insights) LikedCategories() []string {
	return rankCategories(in.Categories, func(s Stats) bool { return s.NetScore > 0 })
}

// DislikedCategories lists categories with negative net score, worst first.
func (in Insights) DislikedCategories() []string {
	out := rankCategories(in.Categories, func(s Stats) bool { return s.NetScore < 0 })
	sort.SliceStable(out, func(i, j int) bool {
		return in.Categories[out[i]].NetScore < in.Categories[out[j]].NetScore
	})
	return out
}

func rankCategories(m map[string]Stats, keep func(Stats) bool) []string {
	var out []string
	for k, s := range m {
		if keep(s) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := m[out[i]], m[out[j]]
		if a.NetScore != b.NetScore {
			return a.NetScore > b.NetScore
		}
		return out[i] < out[j]
	})
	return out
}

const DefaultRecentLimit = 100

// Analyzer turns stored feedback into Insights.
type Analyzer struct {
	src         Source
	log         *slog.Logger
	recentLimit int
}

func NewAnalyzer(src Source, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{src: src, log: log.With("component", "feedback"), recentLimit: DefaultRecentLimit}
}

// Insights never fails: a store error yields empty insights and a warning.
func (a *Analyzer) Insights(ctx context.Context) Insights {
	in := Empty()
	if a.src == nil {
		return in
	}

	cats, err := a.src.FeedbackStats(ctx, ByCategory)
	if err != nil {
		a.log.Warn("feedback stats by category unavailable", "error", err)
		return Empty()
	}
	srcs, err := a.src.FeedbackStats(ctx, BySource)
	if err != nil {
		a.log.Warn("feedback stats by source unavailable", "error", err)
		return Empty()
	}
	recent, err := a.src.RecentFeedback(ctx, a.recentLimit)
	if err != nil {
		a.log.Warn("recent feedback unavailable", "error", err)
		return Empty()
	}

	fill(in.Categories, cats)
	fill(in.Sources, srcs)

	for _, r := range recent {
		var counter map[string]int
		switch r.Feedback {
		case 1:
			counter = in.LikedKeywords
		case -1:
			counter = in.DislikedKeywords
		default:
			continue
		}
		for _, tok := range Tokens(r.Title) {
			counter[tok]++
		}
	}

	in.HasFeedback = len(in.Categories) > 0 || len(in.Sources) > 0
	a.log.Debug("feedback insights loaded",
		"categories", len(in.Categories),
		"sources", len(in.Sources),
		"liked_keywords", len(in.LikedKeywords),
		"disliked_keywords", len(in.DislikedKeywords),
	)
	return in
}

func fill(dst map[string]Stats, rows []GroupStats) {
	for _, g := range rows {
		if g.Key == "" || g.Total <= 0 {
			continue
		}
		dst[g.Key] = Stats{
			ThumbsUp:   g.ThumbsUp,
			ThumbsDown: g.ThumbsDown,
			Total:      g.Total,
			NetScore:   g.ThumbsUp - g.ThumbsDown,
			Ratio:      float64(g.ThumbsUp) / float64(g.Total),
		}
	}
}
