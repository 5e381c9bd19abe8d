package classifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ranker"
	"github.com/deusflow/newscurator/internal/sanitize"
)

const sampleKeywords = 5

// BuildPrompt renders the selection instructions for req.
func BuildPrompt(req ranker.Request, maxDescription int) string {
	n := req.Constraint.ExactCount
	var b strings.Builder

	brief := req.Brief
	if brief == "" {
		brief = "a personalized news digest"
	}
	fmt.Fprintf(&b, "You are selecting EXACTLY %d articles for %s.\n", n, brief)

	if len(req.LikedCategories) > 0 || len(req.DislikedCategories) > 0 {
		b.WriteString("\nUSER PREFERENCES (based on thumbs up/down feedback):\n")
		if len(req.LikedCategories) > 0 {
			fmt.Fprintf(&b, "- User LIKES these categories: %s\n", strings.Join(req.LikedCategories, ", "))
		}
		if len(req.DislikedCategories) > 0 {
			fmt.Fprintf(&b, "- User DISLIKES these categories: %s\n", strings.Join(req.DislikedCategories, ", "))
		}
		b.WriteString("Consider these preferences when selecting articles.\n")
	}

	b.WriteString("\nCATEGORIES (in priority order):\n")
	cats := append([]news.Category(nil), req.Constraint.Categories...)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Priority < cats[j].Priority })
	for _, c := range cats {
		reqText := "optional"
		if c.Required {
			reqText = "REQUIRED"
		}
		minText := ""
		if c.Minimum > 0 {
			minText = fmt.Sprintf(" (minimum %d)", c.Minimum)
		}
		kw := c.Keywords
		if len(kw) > sampleKeywords {
			kw = kw[:sampleKeywords]
		}
		fmt.Fprintf(&b, "%d. %s (%s%s): %s...\n", c.Priority, c.Name, reqText, minText, strings.Join(kw, ", "))
	}

	b.WriteString("\nSTRICT REQUIREMENTS:\n")
	rules := []string{
		fmt.Sprintf("Return EXACTLY %d articles - no more, no fewer", n),
	}
	for _, c := range cats {
		if c.Required && c.Minimum > 0 {
			rules = append(rules, fmt.Sprintf("Must include at least %d %s articles", c.Minimum, c.Name))
		}
	}
	rules = append(rules, req.Rules...)
	rules = append(rules,
		"Rank by relevance within each category",
		"Exclude low-quality content (SEO spam, content farms, thin articles)",
	)
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}

	b.WriteString("\nSOURCE DIVERSITY REQUIREMENTS:\n")
	for _, g := range req.Constraint.SourceCaps.Groups {
		quoted := make([]string, len(g.Members))
		for i, m := range g.Members {
			quoted[i] = fmt.Sprintf("%q", m)
		}
		fmt.Fprintf(&b, "- Maximum %d articles from %s (combined)\n", g.Cap, strings.Join(quoted, " or "))
	}
	capped := make([]string, 0, len(req.Constraint.SourceCaps.Caps))
	for src := range req.Constraint.SourceCaps.Caps {
		capped = append(capped, src)
	}
	sort.Strings(capped)
	for _, src := range capped {
		fmt.Fprintf(&b, "- Maximum %d articles from %q\n", req.Constraint.SourceCaps.Caps[src], src)
	}
	fmt.Fprintf(&b, "- Maximum %d articles from any other single source\n", req.Constraint.SourceCaps.Default)
	b.WriteString("- Prefer diverse sources to give user variety\n")

	b.WriteString("\nARTICLES TO EVALUATE:\n")
	for i, c := range req.Candidates {
		date := "unknown"
		if !c.Published.IsZero() {
			date = c.Published.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "[%d] %s\n    Source: %s | Date: %s\n    %s\n\n",
			i, c.Title, c.Source, date, sanitize.Truncate(c.Description, maxDescription))
	}

	example := "AI_TECH"
	if len(cats) > 0 {
		example = cats[0].Name
	}
	if req.Constraint.ForceCategory != "" {
		example = req.Constraint.ForceCategory
	}
	fmt.Fprintf(&b, `Respond ONLY with valid JSON in this EXACT format (no extra text):
{
  "selected_articles": [
    {"index": 0, "category": %q, "relevance_score": 0.95}
  ]
}

CRITICAL:
- Include the "index" field for each article (from the [number] prefix above)
- Return EXACTLY %d articles
- Return ONLY valid JSON, no markdown code blocks or explanations`, example, n)

	return b.String()
}
