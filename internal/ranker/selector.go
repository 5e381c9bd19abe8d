// Package ranker selects an exact, category-balanced and source-diverse set
// of articles from a candidate pool.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ratelimit"
	"github.com/deusflow/newscurator/internal/retry"
)

// ErrNoClassifier triggers the fallback when no classifier is configured.
var ErrNoClassifier = errors.New("no classifier configured")

// Options tune the selector.
type Options struct {
	BatchCap int           // candidates sent to the classifier
	Timeout  time.Duration // per classifier attempt
	Retry    retry.Config
}

// DefaultOptions: 80 candidates, 90s per attempt, one retry.
func DefaultOptions() Options {
	return Options{
		BatchCap: 80,
		Timeout:  90 * time.Second,
		Retry:    retry.Config{MaxAttempts: 2, Delay: 2 * time.Second},
	}
}

// Guide carries the feed description and reader preferences for the classifier.
type Guide struct {
	Brief              string
	Rules              []string
	LikedCategories    []string
	DislikedCategories []string
}

// Result is the selection and an account of how it was reached.
type Result struct {
	Articles []news.Candidate

	Requested         int
	UnderSupply       bool
	Fallback          bool
	FallbackReason    string
	Truncated         int // pool items never shown to the classifier
	Unresolved        int
	Backfilled        int
	DiversityRemoved  int
	DiversityRefilled int
	DiversityReadded  int
	MinimumRelabels   int
	MinimumSwaps      int
}

// Selector implements category ranking and selection.
type Selector struct {
	classifier Classifier
	opts       Options
	log        *slog.Logger
}

func NewSelector(c Classifier, opts Options, log *slog.Logger) *Selector {
	if opts.BatchCap <= 0 {
		opts.BatchCap = DefaultOptions().BatchCap
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Selector{classifier: c, opts: opts, log: log.With("component", "ranker")}
}

type entry struct {
	c   news.Candidate
	idx int // position in the pool
}

// Select returns min(ExactCount, len(unique pool)) articles. It only fails on
// an invalid constraint; classifier problems fall back to arrival order.
func (s *Selector) Select(ctx context.Context, pool []news.Candidate, sc news.SelectionConstraint, g Guide) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid selection constraint: %w", err)
	}
	pool, _ = news.Dedupe(pool)
	n := sc.ExactCount
	res := Result{Requested: n}

	if len(pool) < n {
		s.log.Warn("fewer candidates than requested", "available", len(pool), "requested", n)
		res.UnderSupply = true
		res.Articles = labelDefault(pool, sc)
		return res, nil
	}

	batch := pool
	if len(batch) > s.opts.BatchCap {
		res.Truncated = len(batch) - s.opts.BatchCap
		batch = batch[:s.opts.BatchCap]
	}

	picks, err := s.classify(ctx, Request{
		Candidates:         batch,
		Constraint:         sc,
		Brief:              g.Brief,
		Rules:              g.Rules,
		LikedCategories:    g.LikedCategories,
		DislikedCategories: g.DislikedCategories,
	})
	if err != nil {
		s.log.Warn("classifier failed, falling back to arrival order", "error", err)
		res.Fallback = true
		res.FallbackReason = err.Error()
		res.Articles = labelDefault(pool[:n], sc)
		return res, nil
	}

	selected, unresolved := resolvePicks(picks, batch, sc)
	res.Unresolved = unresolved
	if unresolved > 0 {
		s.log.Warn("classifier picks could not be matched", "count", unresolved)
	}
	rank(selected, sc)

	used := make(map[int]struct{}, len(selected))
	for _, e := range selected {
		used[e.idx] = struct{}{}
	}
	var rest []entry
	for i, c := range pool {
		if _, ok := used[i]; !ok {
			rest = append(rest, entry{c: labelBackfill(c, sc), idx: i})
		}
	}
	rank(rest, sc)

	for len(selected) < n && len(rest) > 0 {
		selected = append(selected, rest[0])
		rest = rest[1:]
		res.Backfilled++
	}
	if res.Backfilled > 0 {
		s.log.Info("backfilled selection", "count", res.Backfilled)
	}

	// Over-returned picks stay ahead of the unclassified remainder in reserve.
	var reserve []news.Candidate
	if len(selected) > n {
		for _, e := range selected[n:] {
			reserve = append(reserve, e.c)
		}
		selected = selected[:n]
	}
	for _, e := range rest {
		reserve = append(reserve, e.c)
	}

	articles := make([]news.Candidate, len(selected))
	for i, e := range selected {
		articles[i] = e.c
	}

	div := EnforceDiversity(articles, reserve, sc.SourceCaps, n)
	res.DiversityRemoved, res.DiversityRefilled, res.DiversityReadded = div.Removed, div.Refilled, div.Readded
	if div.Removed > 0 {
		s.log.Info("source diversity enforced",
			"removed", div.Removed, "refilled", div.Refilled, "readded", div.Readded)
	}

	repaired := repairMinimums(div.Kept, reserve, sc)
	articles = repaired.Articles
	res.MinimumRelabels, res.MinimumSwaps = repaired.Relabels, repaired.Swaps
	if repaired.Relabels > 0 || repaired.Swaps > 0 {
		s.log.Info("category minimums repaired", "relabels", repaired.Relabels, "swaps", repaired.Swaps)
	}

	if sc.ForceCategory != "" {
		for i := range articles {
			articles[i].Category = sc.ForceCategory
		}
	}
	res.Articles = articles
	return res, nil
}

func (s *Selector) classify(ctx context.Context, req Request) ([]Pick, error) {
	if s.classifier == nil {
		return nil, ErrNoClassifier
	}
	var picks []Pick
	err := retry.WithRetry(ctx, s.opts.Retry, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		p, err := s.classifier.Classify(cctx, req)
		if err != nil {
			if errors.Is(err, ratelimit.ErrBudgetExhausted) {
				return retry.Permanent(err)
			}
			s.log.Debug("classifier attempt failed", "error", err)
			return err
		}
		picks = p
		return nil
	})
	return picks, err
}

func resolvePicks(picks []Pick, batch []news.Candidate, sc news.SelectionConstraint) ([]entry, int) {
	var (
		out        []entry
		unresolved int
	)
	seen := map[int]struct{}{}
	for _, p := range picks {
		i := locate(p, batch)
		if i < 0 {
			unresolved++
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}

		c := batch[i]
		c.Category = p.Category
		if c.Category == "" {
			c.Category = news.Uncategorized
		}
		if sc.ForceCategory != "" {
			c.Category = sc.ForceCategory
		}
		c.Score = news.DefaultScore
		if p.Score != nil {
			c.Score = *p.Score
		}
		out = append(out, entry{c: c, idx: i})
	}
	return out, unresolved
}

// rank orders by category priority, then effective score, then pool position.
func rank(es []entry, sc news.SelectionConstraint) {
	sort.SliceStable(es, func(i, j int) bool {
		pi, pj := sc.Priority(es[i].c.Category), sc.Priority(es[j].c.Category)
		if pi != pj {
			return pi < pj
		}
		si, sj := es[i].c.EffectiveScore(), es[j].c.EffectiveScore()
		if si != sj {
			return si > sj
		}
		return es[i].idx < es[j].idx
	})
}

// labelBackfill gives an unclassified candidate the forced category, its
// hint when that is a configured category, or UNCATEGORIZED.
func labelBackfill(c news.Candidate, sc news.SelectionConstraint) news.Candidate {
	switch {
	case sc.ForceCategory != "":
		c.Category = sc.ForceCategory
	case c.CategoryHint != "":
		if _, ok := sc.Category(c.CategoryHint); ok {
			c.Category = c.CategoryHint
		} else {
			c.Category = news.Uncategorized
		}
	default:
		c.Category = news.Uncategorized
	}
	c.Score = news.DefaultScore
	return c
}

// labelDefault is the degraded labelling used for fallback and under-supply.
func labelDefault(cands []news.Candidate, sc news.SelectionConstraint) []news.Candidate {
	out := make([]news.Candidate, len(cands))
	for i, c := range cands {
		c.Category = news.Uncategorized
		if sc.ForceCategory != "" {
			c.Category = sc.ForceCategory
		}
		c.Score = news.DefaultScore
		out[i] = c
	}
	return out
}
