package news

import (
	"regexp"
	"strings"
	"sync"
)

var (
	wordRegexMu sync.Mutex
	wordRegex   = map[string]*regexp.Regexp{}
)

func wordBoundary(k string) *regexp.Regexp {
	wordRegexMu.Lock()
	defer wordRegexMu.Unlock()
	if re, ok := wordRegex[k]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
	wordRegex[k] = re
	return re
}

// ContainsAny reports whether text mentions any keyword. Phrases and long
// words match as substrings; short tokens (<=3 chars) must be whole words so
// that "ai" does not match "said".
func ContainsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 3 {
			if wordBoundary(k).MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
