package feedback

import (
	"math"

	"github.com/deusflow/newscurator/internal/news"
)

const (
	categoryWeight    = 0.15
	categoryBonus     = 0.10
	bonusRatio        = 0.8
	bonusMinTotal     = 3
	sourceWeight      = 0.05
	keywordWeight     = 0.15
	keywordSaturation = 3.0
)

// Booster turns insights into an additive per-candidate score adjustment.
type Booster struct {
	// Clamp bounds the boost to [-Clamp, Clamp]. Zero leaves it unbounded.
	Clamp float64
}

// Boost computes the feedback boost for c.
func (b Booster) Boost(c news.Candidate, in Insights) float64 {
	if !in.HasFeedback {
		return 0
	}
	return b.boost(c, in, TopKeywords(in.LikedKeywords), TopKeywords(in.DislikedKeywords))
}

// Apply returns a copy of cands with Boost set. Without feedback the
// candidates are returned unchanged.
func (b Booster) Apply(cands []news.Candidate, in Insights) []news.Candidate {
	if !in.HasFeedback {
		return cands
	}
	liked := TopKeywords(in.LikedKeywords)
	disliked := TopKeywords(in.DislikedKeywords)

	out := make([]news.Candidate, len(cands))
	for i, c := range cands {
		c.Boost = b.boost(c, in, liked, disliked)
		out[i] = c
	}
	return out
}

func (b Booster) boost(c news.Candidate, in Insights, liked, disliked []string) float64 {
	var boost float64

	category := c.CategoryHint
	if category == "" {
		category = c.Category
	}
	if s, ok := in.Categories[category]; ok {
		boost += weighted(s, categoryWeight)
		if s.Ratio >= bonusRatio && s.Total >= bonusMinTotal {
			boost += categoryBonus
		}
	}

	if s, ok := in.Sources[c.Source]; ok {
		boost += weighted(s, sourceWeight)
	}

	words := tokenSet(c.Title)
	boost += keywordWeight * overlap(words, liked)
	boost -= keywordWeight * overlap(words, disliked)

	if b.Clamp > 0 {
		boost = math.Max(-b.Clamp, math.Min(b.Clamp, boost))
	}
	return boost
}

func weighted(s Stats, weight float64) float64 {
	switch {
	case s.NetScore > 0:
		return weight * s.Ratio
	case s.NetScore < 0:
		return -weight * (1 - s.Ratio)
	}
	return 0
}

func overlap(words map[string]struct{}, top []string) float64 {
	m := 0
	for _, k := range top {
		if _, ok := words[k]; ok {
			m++
		}
	}
	return math.Min(float64(m)/keywordSaturation, 1)
}
