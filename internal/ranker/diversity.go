package ranker

import (
	"sort"

	"github.com/deusflow/newscurator/internal/news"
)

// Diversity reports what source-diversity enforcement changed.
type Diversity struct {
	Kept     []news.Candidate
	Removed  int // items over their source cap in the single pass
	Refilled int // under-cap replacements taken from the reserve
	Readded  int // over-cap items put back to reach the exact count
}

// EnforceDiversity walks selected in order keeping items whose source is
// under its cap. Named variants of an outlet share one counter. If fewer than
// n remain, under-cap items from reserve (already ranked) are added first and
// only then are removed items re-added, highest effective score first, until
// n is reached. The re-add step is the only way a cap can be exceeded.
func EnforceDiversity(selected, reserve []news.Candidate, caps news.SourceCaps, n int) Diversity {
	counts := map[string]int{}
	kept := make([]news.Candidate, 0, len(selected))
	var removed []news.Candidate

	for _, c := range selected {
		key := caps.KeyFor(c.Source)
		if counts[key] < caps.CapFor(c.Source) {
			kept = append(kept, c)
			counts[key]++
		} else {
			removed = append(removed, c)
		}
	}

	d := Diversity{Removed: len(removed)}
	if len(removed) == 0 {
		d.Kept = kept
		return d
	}

	taken := map[string]struct{}{}
	for _, c := range kept {
		taken[c.URL] = struct{}{}
	}
	for _, c := range removed {
		taken[c.URL] = struct{}{}
	}
	for _, c := range reserve {
		if len(kept) >= n {
			break
		}
		if _, dup := taken[c.URL]; dup {
			continue
		}
		key := caps.KeyFor(c.Source)
		if counts[key] >= caps.CapFor(c.Source) {
			continue
		}
		kept = append(kept, c)
		taken[c.URL] = struct{}{}
		counts[key]++
		d.Refilled++
	}

	sort.SliceStable(removed, func(i, j int) bool {
		return removed[i].EffectiveScore() > removed[j].EffectiveScore()
	})
	for len(kept) < n && len(removed) > 0 {
		kept = append(kept, removed[0])
		removed = removed[1:]
		d.Readded++
	}

	d.Kept = kept
	return d
}

// CapViolations counts, per counter key, how far a selection exceeds caps.
func CapViolations(selected []news.Candidate, caps news.SourceCaps) map[string]int {
	counts := map[string]int{}
	limit := map[string]int{}
	for _, c := range selected {
		key := caps.KeyFor(c.Source)
		counts[key]++
		limit[key] = caps.CapFor(c.Source)
	}
	out := map[string]int{}
	for key, n := range counts {
		if n > limit[key] {
			out[key] = n - limit[key]
		}
	}
	return out
}
