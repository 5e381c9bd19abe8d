package news

// Dedupe keeps the first occurrence of each URL, preserving order.
func Dedupe(cands []Candidate) ([]Candidate, int) {
	seen := make(map[string]struct{}, len(cands))
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		kept = append(kept, c)
	}
	return kept, len(cands) - len(kept)
}
