package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deusflow/newscurator/internal/ranker"
)

// ErrUnparseable is returned when a model response contains no usable picks.
var ErrUnparseable = errors.New("classifier response unparseable")

// ExtractJSONObject returns the first balanced JSON object in text. The first
// markdown code fence is searched before the full text, and braces inside
// string literals are ignored.
func ExtractJSONObject(text string) (string, bool) {
	if fenced := stripFences(text); fenced != text {
		if obj, ok := balancedObject(fenced); ok {
			return obj, true
		}
	}
	return balancedObject(text)
}

func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func stripFences(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	return text
}

var pickListKeys = []string{"selected_articles", "articles", "selections"}

// ParsePicks decodes a model response into picks. Items that carry neither an
// index, a URL nor a title are dropped.
func ParsePicks(text string) ([]ranker.Pick, error) {
	obj, ok := ExtractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var raw json.RawMessage
	for _, k := range pickListKeys {
		if v, ok := envelope[k]; ok {
			raw = v
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: no selected_articles list", ErrUnparseable)
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	picks := make([]ranker.Pick, 0, len(items))
	for _, it := range items {
		p := ranker.Pick{
			URL:      stringField(it, "url"),
			Title:    stringField(it, "title"),
			Category: stringField(it, "category"),
		}
		if idx, ok := numberField(it, "index"); ok && idx >= 0 && idx == math.Trunc(idx) {
			i := int(idx)
			p.Index = &i
		}
		if s, ok := numberField(it, "relevance_score"); ok {
			p.Score = &s
		} else if s, ok := numberField(it, "score"); ok {
			p.Score = &s
		}
		if p.Index == nil && p.URL == "" && p.Title == "" {
			continue
		}
		picks = append(picks, p)
	}
	if len(picks) == 0 && len(items) > 0 {
		return nil, fmt.Errorf("%w: no item carried an index, url or title", ErrUnparseable)
	}
	return picks, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
