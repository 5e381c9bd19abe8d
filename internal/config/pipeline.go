package config

import (
	"time"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ranker"
	"github.com/deusflow/newscurator/internal/retry"
)

// Feed is one resolved output feed.
type Feed struct {
	Name           string
	TargetCategory string
	Routed         bool
	Constraint     news.SelectionConstraint
	Brief          string
	Rules          []string
}

// PipelineConfig is the immutable value threaded into pipeline components.
type PipelineConfig struct {
	Window           time.Duration
	FetchConcurrency int
	RunDeadline      time.Duration
	EnoughCandidates int
	BoostClamp       float64
	Selector         ranker.Options
	Exclusion        news.ExclusionFilter
	Router           news.Router
	Feeds            []Feed
}

// Pipeline resolves feed profiles against the category list. Every slice and
// map in the result is a fresh copy.
func (c *Config) Pipeline() PipelineConfig {
	pc := PipelineConfig{
		Window:           c.RecencyWindow,
		FetchConcurrency: c.FetchConcurrency,
		RunDeadline:      c.RunDeadline,
		EnoughCandidates: c.EnoughCandidates,
		BoostClamp:       c.BoostClamp,
		Selector: ranker.Options{
			BatchCap: c.ClassifierBatchCap,
			Timeout:  c.ClassifierTimeout,
			Retry:    retry.Config{MaxAttempts: c.RetryAttempts, Delay: c.RetryDelay},
		},
		Exclusion: news.ExclusionFilter{
			Global: cloneStrings(c.Sources.Exclusion.Global),
			Rules:  cloneRules(c.Sources.Exclusion.Rules),
		},
		Router: news.Router{
			Markers: cloneStrings(c.Sources.Routing.Markers),
			Hints:   cloneStrings(c.Sources.Routing.Hints),
		},
	}

	for _, p := range c.Sources.Feeds {
		caps := c.Sources.SourceCaps
		if p.SourceCaps != nil {
			caps = *p.SourceCaps
		}
		var cats []news.Category
		for _, name := range p.Categories {
			if cat, ok := c.Sources.category(name); ok {
				cat.Keywords = cloneStrings(cat.Keywords)
				cats = append(cats, cat)
			}
		}
		pc.Feeds = append(pc.Feeds, Feed{
			Name:           p.Name,
			TargetCategory: p.TargetCategory,
			Routed:         p.Routed,
			Brief:          p.Brief,
			Rules:          cloneStrings(p.Rules),
			Constraint: news.SelectionConstraint{
				ExactCount:    p.Count,
				Categories:    cats,
				SourceCaps:    cloneCaps(caps),
				ForceCategory: p.ForceCategory,
			},
		})
	}
	return pc
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneRules(in []news.ExclusionRule) []news.ExclusionRule {
	out := make([]news.ExclusionRule, len(in))
	for i, r := range in {
		out[i] = news.ExclusionRule{ExemptCategory: r.ExemptCategory, Sources: cloneStrings(r.Sources)}
	}
	return out
}

func cloneCaps(in news.SourceCaps) news.SourceCaps {
	out := news.SourceCaps{Default: in.Default}
	if in.Caps != nil {
		out.Caps = make(map[string]int, len(in.Caps))
		for k, v := range in.Caps {
			out.Caps[k] = v
		}
	}
	for _, g := range in.Groups {
		out.Groups = append(out.Groups, news.SourceGroup{Name: g.Name, Members: cloneStrings(g.Members), Cap: g.Cap})
	}
	return out
}
