package sources

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newscurator/internal/news"
)

// Collector runs adapters on a bounded worker pool.
type Collector struct {
	Concurrency      int
	RunDeadline      time.Duration
	Window           time.Duration
	EnoughCandidates int // 0 disables early stop
	Log              *slog.Logger
}

// Collection holds per-adapter results in adapter declaration order.
type Collection struct {
	Results []FetchResult
}

// Candidates flattens all items in adapter declaration order.
func (c Collection) Candidates() []news.Candidate {
	var out []news.Candidate
	for _, r := range c.Results {
		out = append(out, r.Items...)
	}
	return out
}

// Failures returns the results whose source was unreachable.
func (c Collection) Failures() []FetchResult {
	var out []FetchResult
	for _, r := range c.Results {
		if r.Unavailable() {
			out = append(out, r)
		}
	}
	return out
}

// Collect fetches from every adapter. Failing adapters are reported in their
// FetchResult and never abort the others. Once EnoughCandidates items have
// arrived the remaining adapters are cancelled and marked Skipped. An adapter
// that fails for any reason other than that cancellation is still reported.
func (c *Collector) Collect(ctx context.Context, adapters []Adapter) Collection {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	if c.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RunDeadline)
		defer cancel()
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	results := make([]FetchResult, len(adapters))
	var (
		total  atomic.Int64
		enough atomic.Bool
	)

	var g errgroup.Group
	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, a := range adapters {
		g.Go(func() error {
			res := FetchResult{Adapter: a.Name()}
			if enough.Load() {
				res.Skipped = true
				results[i] = res
				return nil
			}

			start := time.Now()
			items, err := a.Fetch(ctx, c.Window)
			res.Elapsed = time.Since(start)
			res.Items = items

			switch {
			case err != nil && enough.Load() && errors.Is(err, context.Canceled):
				res.Skipped = true
			case err != nil:
				var fe *FetchError
				if !errors.As(err, &fe) {
					fe = &FetchError{Source: a.Name(), Err: err}
				}
				res.Err = fe
				log.Warn("source unavailable", "adapter", a.Name(), "error", err)
			default:
				log.Debug("source fetched", "adapter", a.Name(), "items", len(items), "elapsed", res.Elapsed)
			}
			results[i] = res

			if c.EnoughCandidates > 0 && total.Add(int64(len(items))) >= int64(c.EnoughCandidates) {
				if enough.CompareAndSwap(false, true) {
					log.Info("enough candidates collected, cancelling remaining sources", "count", total.Load())
				}
				stop()
			}
			return nil
		})
	}
	_ = g.Wait()

	return Collection{Results: results}
}
