package news

import "strings"

// Router splits candidates between a marked feed and the rest, by source
// label marker or by category hint.
type Router struct {
	Markers []string `yaml:"markers"`
	Hints   []string `yaml:"hints"`
}

// Matches reports whether c belongs to the marked side.
func (r Router) Matches(c Candidate) bool {
	if matchesSource(strings.ToLower(c.Source), r.Markers) {
		return true
	}
	for _, h := range r.Hints {
		if c.CategoryHint != "" && strings.EqualFold(h, c.CategoryHint) {
			return true
		}
	}
	return false
}

// Split returns (marked, rest), both in input order.
func (r Router) Split(cands []Candidate) ([]Candidate, []Candidate) {
	var marked, rest []Candidate
	for _, c := range cands {
		if r.Matches(c) {
			marked = append(marked, c)
		} else {
			rest = append(rest, c)
		}
	}
	return marked, rest
}
