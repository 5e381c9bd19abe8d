package ranker

import (
	"github.com/deusflow/newscurator/internal/news"
)

// minimumRepair reports what category-minimum repair changed.
type minimumRepair struct {
	Articles []news.Candidate
	Relabels int
	Swaps    int
}

// repairMinimums fills every required category with a minimum. Selected items
// that match the category are relabelled first, taken only from categories
// that can spare them. Then reserve candidates are swapped in until the
// minimum is met or no legal swap remains. A swap replaces the lowest-ranked
// item whose category can spare it and never pushes a source over its cap.
func repairMinimums(selected, reserve []news.Candidate, sc news.SelectionConstraint) minimumRepair {
	if sc.ForceCategory != "" {
		return minimumRepair{Articles: selected}
	}
	out := append([]news.Candidate(nil), selected...)
	pool := append([]news.Candidate(nil), reserve...)
	var rep minimumRepair

	inSelection := map[string]struct{}{}
	for _, c := range out {
		inSelection[c.URL] = struct{}{}
	}

	for _, cat := range sc.Categories {
		if !cat.Required || cat.Minimum <= 0 {
			continue
		}
		for i := len(out) - 1; i >= 0 && countCategory(out, cat.Name) < cat.Minimum; i-- {
			if out[i].Category == cat.Name || !cat.Matches(out[i]) || !canSpare(out, sc, out[i].Category) {
				continue
			}
			out[i].Category = cat.Name
			rep.Relabels++
		}
		for countCategory(out, cat.Name) < cat.Minimum {
			victim := spareable(out, sc, cat.Name)
			if victim < 0 {
				break
			}
			pick := -1
			for i, c := range pool {
				if _, dup := inSelection[c.URL]; dup {
					continue
				}
				if c.Category != cat.Name && !cat.Matches(c) {
					continue
				}
				if !fitsCap(out, victim, c, sc.SourceCaps) {
					continue
				}
				pick = i
				break
			}
			if pick < 0 {
				break
			}

			c := pool[pick]
			if c.Category != cat.Name {
				c.Category = cat.Name
				c.Score = news.DefaultScore
			}
			delete(inSelection, out[victim].URL)
			inSelection[c.URL] = struct{}{}
			pool = append(pool[:pick], pool[pick+1:]...)
			out[victim] = c
			rep.Swaps++
		}
	}
	rep.Articles = out
	return rep
}

func countCategory(cands []news.Candidate, name string) int {
	n := 0
	for _, c := range cands {
		if c.Category == name {
			n++
		}
	}
	return n
}

// spareable returns the index of the last item that may be replaced to make
// room for category need, or -1.
func spareable(cands []news.Candidate, sc news.SelectionConstraint, need string) int {
	for i := len(cands) - 1; i >= 0; i-- {
		name := cands[i].Category
		if name == need || !canSpare(cands, sc, name) {
			continue
		}
		return i
	}
	return -1
}

// canSpare reports whether category name stays at or above its own minimum
// after losing one item.
func canSpare(cands []news.Candidate, sc news.SelectionConstraint, name string) bool {
	cat, ok := sc.Category(name)
	if ok && cat.Required && cat.Minimum > 0 && countCategory(cands, name) <= cat.Minimum {
		return false
	}
	return true
}

// fitsCap reports whether c can replace cands[victim] without exceeding
// c's source cap.
func fitsCap(cands []news.Candidate, victim int, c news.Candidate, caps news.SourceCaps) bool {
	key := caps.KeyFor(c.Source)
	n := 0
	for i, s := range cands {
		if i != victim && caps.KeyFor(s.Source) == key {
			n++
		}
	}
	return n < caps.CapFor(c.Source)
}
