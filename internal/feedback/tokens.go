package feedback

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by from as is was are
		been be have has had do does did will would should could may might can this that these
		those it its they them their what which who when where why how all each every both few
		more most other some such only own same so than too very just now you your we our new`) {
		stopWords[w] = struct{}{}
	}
}

// Tokens returns the lowercase words of at least three letters in title,
// stop words removed. Repeated words are kept.
func Tokens(title string) []string {
	words := wordRe.FindAllString(strings.ToLower(title), -1)
	out := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func tokenSet(title string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordRe.FindAllString(strings.ToLower(title), -1) {
		set[w] = struct{}{}
	}
	return set
}

const (
	topKeywordLimit = 20
	minKeywordCount = 2
)

// TopKeywords returns up to 20 tokens seen at least twice, most frequent
// first, ties broken alphabetically.
func TopKeywords(counts map[string]int) []string {
	type kv struct {
		word  string
		count int
	}
	all := make([]kv, 0, len(counts))
	for w, c := range counts {
		all = append(all, kv{w, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].word < all[j].word
	})
	if len(all) > topKeywordLimit {
		all = all[:topKeywordLimit]
	}

	out := make([]string, 0, len(all))
	for _, e := range all {
		if e.count >= minKeywordCount {
			out = append(out, e.word)
		}
	}
	return out
}
