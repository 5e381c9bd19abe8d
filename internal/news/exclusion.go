package news

import "strings"

// ExclusionRule drops the listed sources from every feed except the exempt
// one. Candidates hinted with the exempt category are never dropped by it.
type ExclusionRule struct {
	ExemptCategory string   `yaml:"exempt_category"`
	Sources        []string `yaml:"sources"`
}

// ExclusionFilter removes candidates from sources that should never reach a feed.
type ExclusionFilter struct {
	Global []string        `yaml:"global"`
	Rules  []ExclusionRule `yaml:"rules"`
}

// Allow reports whether c may be considered for a feed targeting feedCategory.
// Source labels are matched case-insensitively as substrings.
func (f ExclusionFilter) Allow(c Candidate, feedCategory string) bool {
	src := strings.ToLower(c.Source)
	if matchesSource(src, f.Global) {
		return false
	}
	for _, r := range f.Rules {
		if strings.EqualFold(r.ExemptCategory, feedCategory) || strings.EqualFold(r.ExemptCategory, c.CategoryHint) {
			continue
		}
		if matchesSource(src, r.Sources) {
			return false
		}
	}
	return true
}

// Apply returns the allowed candidates and how many were excluded.
func (f ExclusionFilter) Apply(cands []Candidate, feedCategory string) ([]Candidate, int) {
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if f.Allow(c, feedCategory) {
			kept = append(kept, c)
		}
	}
	return kept, len(cands) - len(kept)
}

func matchesSource(src string, list []string) bool {
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(src, s) {
			return true
		}
	}
	return false
}
