// Package app wires sources, filters, feedback, selection and storage into
// one curation run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newscurator/internal/config"
	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ranker"
	"github.com/deusflow/newscurator/internal/scraper"
	"github.com/deusflow/newscurator/internal/sources"
)

// Store is what a run needs from persistence.
type Store interface {
	feedback.Source
	SaveSelected(ctx context.Context, cands []news.Candidate) (int, error)
}

// Deps are the collaborators of a Pipeline. Classifier, Enricher and Store
// may be nil.
type Deps struct {
	Config     config.PipelineConfig
	Adapters   []sources.Adapter
	Enricher   *scraper.Enricher
	Classifier ranker.Classifier
	Store      Store
	Health     *metrics.Health
	Log        *slog.Logger
}

// Pipeline runs one curation pass per call.
type Pipeline struct {
	cfg      config.PipelineConfig
	adapters []sources.Adapter
	enricher *scraper.Enricher
	selector *ranker.Selector
	store    Store
	health   *metrics.Health
	log      *slog.Logger
	now      func() time.Time
}

func NewPipeline(d Deps) *Pipeline {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:      d.Config,
		adapters: d.Adapters,
		enricher: d.Enricher,
		selector: ranker.NewSelector(d.Classifier, d.Config.Selector, log),
		store:    d.Store,
		health:   d.Health,
		log:      log,
		now:      time.Now,
	}
}

// FeedReport summarises the selection of one feed.
type FeedReport struct {
	Name      string
	Pool      int
	Excluded  int
	Selection ranker.Result
}

// Report describes a finished run.
type Report struct {
	RunID      string
	Fetched    int
	Failures   []sources.FetchResult
	Rejected   map[string]int
	Duplicates int
	Enriched   int
	Insights   feedback.Insights
	Feeds      []FeedReport
	Saved      int
	Conflicts  int
	Warnings   []string
	Elapsed    time.Duration
}

// Selected returns every selected article, feed by feed.
func (r Report) Selected() []news.Candidate {
	var out []news.Candidate
	for _, f := range r.Feeds {
		out = append(out, f.Selection.Articles...)
	}
	return out
}

var errNoFeeds = errors.New("no feeds configured")

// Run collects, filters, boosts, selects and persists. It only returns an
// error for misconfiguration; source, classifier and storage failures
// degrade and are listed in the report.
func (p *Pipeline) Run(ctx context.Context) (rep Report, err error) {
	start := p.now()
	rep.RunID = uuid.NewString()
	log := p.log.With("run_id", rep.RunID)

	defer func() {
		rep.Elapsed = p.now().Sub(start)
		metrics.RunDuration.Observe(rep.Elapsed.Seconds())
		if p.health != nil {
			p.health.RecordRun(rep.Elapsed, err)
		}
	}()

	if err := p.checkFeeds(); err != nil {
		return rep, err
	}

	log.Info("run started", "adapters", len(p.adapters), "feeds", len(p.cfg.Feeds))

	collector := &sources.Collector{
		Concurrency:      p.cfg.FetchConcurrency,
		RunDeadline:      p.cfg.RunDeadline,
		Window:           p.cfg.Window,
		EnoughCandidates: p.cfg.EnoughCandidates,
		Log:              log,
	}
	coll := collector.Collect(ctx, p.adapters)
	for _, r := range coll.Results {
		metrics.CandidatesFetched.WithLabelValues(r.Adapter).Add(float64(len(r.Items)))
		if r.Unavailable() {
			metrics.SourceFailures.WithLabelValues(r.Adapter).Inc()
			rep.Warnings = append(rep.Warnings, r.Err.Error())
		}
	}
	rep.Failures = coll.Failures()
	all := coll.Candidates()
	rep.Fetched = len(all)

	valid, rejected := news.Validator{Window: p.cfg.Window}.Filter(all, p.now().UTC())
	rep.Rejected = rejected
	for reason, n := range rejected {
		metrics.CandidatesFiltered.WithLabelValues(reason).Add(float64(n))
	}

	unique, dups := news.Dedupe(valid)
	rep.Duplicates = dups
	metrics.CandidatesFiltered.WithLabelValues("duplicate").Add(float64(dups))

	log.Info("candidates ready",
		"fetched", rep.Fetched,
		"valid", len(valid),
		"unique", len(unique),
		"failed_sources", len(rep.Failures),
	)

	rep.Enriched = p.enricher.Enrich(ctx, unique)

	rep.Insights = feedback.NewAnalyzer(p.store, log).Insights(ctx)
	boosted := feedback.Booster{Clamp: p.cfg.BoostClamp}.Apply(unique, rep.Insights)

	routed, rest := p.cfg.Router.Split(boosted)
	guide := ranker.Guide{
		LikedCategories:    rep.Insights.LikedCategories(),
		DislikedCategories: rep.Insights.DislikedCategories(),
	}

	for _, f := range p.cfg.Feeds {
		pool := rest
		if f.Routed {
			pool = routed
		}
		pool, excluded := p.cfg.Exclusion.Apply(pool, f.TargetCategory)
		metrics.CandidatesFiltered.WithLabelValues("excluded_source").Add(float64(excluded))

		g := guide
		g.Brief, g.Rules = f.Brief, f.Rules
		res, err := p.selector.Select(ctx, pool, f.Constraint, g)
		if err != nil {
			return rep, fmt.Errorf("feed %s: %w", f.Name, err)
		}

		fr := FeedReport{Name: f.Name, Pool: len(pool), Excluded: excluded, Selection: res}
		rep.Feeds = append(rep.Feeds, fr)
		recordSelection(f.Name, res)
		if res.UnderSupply {
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("feed %s: only %d of %d articles available", f.Name, len(res.Articles), res.Requested))
		}
		if res.Fallback {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("feed %s: classifier fallback: %s", f.Name, res.FallbackReason))
		}
		log.Info("feed selected",
			"feed", f.Name,
			"pool", len(pool),
			"excluded", excluded,
			"selected", len(res.Articles),
			"fallback", res.Fallback,
		)
	}

	p.persist(ctx, log, &rep)
	log.Info("run finished", "saved", rep.Saved, "conflicts", rep.Conflicts, "warnings", len(rep.Warnings))
	return rep, nil
}

func (p *Pipeline) checkFeeds() error {
	if len(p.cfg.Feeds) == 0 {
		return errNoFeeds
	}
	for _, f := range p.cfg.Feeds {
		if err := f.Constraint.Validate(); err != nil {
			return fmt.Errorf("feed %s: %w", f.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, rep *Report) {
	selected := rep.Selected()
	if p.store == nil || len(selected) == 0 {
		return
	}
	saved, err := p.store.SaveSelected(ctx, selected)
	if err != nil {
		log.Error("failed to persist selection", "error", err)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("persist: %v", err))
		return
	}
	rep.Saved = saved
	rep.Conflicts = len(selected) - saved
	metrics.ArticlesPersisted.WithLabelValues("saved").Add(float64(saved))
	metrics.ArticlesPersisted.WithLabelValues("conflict").Add(float64(rep.Conflicts))
}

func recordSelection(feed string, res ranker.Result) {
	outcome := "classified"
	switch {
	case res.UnderSupply:
		outcome = "under_supply"
	case res.Fallback:
		outcome = "fallback"
	}
	metrics.ClassifierCalls.WithLabelValues(feed, outcome).Inc()
	metrics.SelectionSize.WithLabelValues(feed).Set(float64(len(res.Articles)))
	metrics.SelectionAdjustments.WithLabelValues(feed, "backfilled").Add(float64(res.Backfilled))
	metrics.SelectionAdjustments.WithLabelValues(feed, "diversity_removed").Add(float64(res.DiversityRemoved))
	metrics.SelectionAdjustments.WithLabelValues(feed, "diversity_readded").Add(float64(res.DiversityReadded))
	metrics.SelectionAdjustments.WithLabelValues(feed, "minimum_relabels").Add(float64(res.MinimumRelabels))
	metrics.SelectionAdjustments.WithLabelValues(feed, "minimum_swaps").Add(float64(res.MinimumSwaps))
}
