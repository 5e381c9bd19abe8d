package ranker

import (
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newscurator/internal/news"
)

const (
	minPrefixMatch = 30
	prefixWindow   = 50
)

// locate resolves a pick to an index into batch, or -1. Index wins when in
// range, then exact URL, exact title and finally a title prefix match in
// either direction.
func locate(p Pick, batch []news.Candidate) int {
	if p.Index != nil && *p.Index >= 0 && *p.Index < len(batch) {
		return *p.Index
	}
	if u := strings.TrimSpace(p.URL); u != "" {
		for i, c := range batch {
			if c.URL == u {
				return i
			}
		}
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return -1
	}
	for i, c := range batch {
		if strings.TrimSpace(c.Title) == title {
			return i
		}
	}
	if utf8.RuneCountInString(title) < minPrefixMatch {
		return -1
	}
	want := runePrefix(title, prefixWindow)
	for i, c := range batch {
		have := strings.TrimSpace(c.Title)
		if utf8.RuneCountInString(have) < minPrefixMatch {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(title, runePrefix(have, prefixWindow)) {
			return i
		}
	}
	return -1
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
