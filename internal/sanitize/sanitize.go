package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text strips markup from an HTML fragment and collapses whitespace.
// Plain text passes through unchanged apart from whitespace collapsing.
func Text(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return collapse(stripTags(fragment))
	}
	doc.Find("script, style, noscript").Remove()

	// Keep paragraph and line breaks from gluing words together.
	doc.Find("br, p, div, li").AfterHtml(" ")
	return collapse(doc.Find("body").Text())
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripTags is the fallback when the fragment cannot be parsed at all.
func stripTags(s string) string {
	inTag := false
	var b strings.Builder
	for _, ch := range s {
		switch {
		case ch == '<':
			inTag = true
		case ch == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
