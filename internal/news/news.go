package news

import (
	"fmt"
	"strings"
	"time"
)

// Uncategorized is assigned when neither the classifier nor a hint provides a category.
const Uncategorized = "UNCATEGORIZED"

// DefaultScore is the relevance given to items that were never scored by the classifier.
const DefaultScore = 0.5

// Candidate is a single article produced by a source adapter during one run.
type Candidate struct {
	Title        string
	URL          string
	Source       string
	Published    time.Time
	Description  string
	CategoryHint string

	Category string  // assigned by the selector
	Score    float64 // classifier relevance
	Boost    float64 // feedback boost, kept apart from Score
}

// EffectiveScore combines the classifier score and the feedback boost.
func (c Candidate) EffectiveScore() float64 {
	return c.Score + c.Boost
}

// PersistedArticle is a stored article row, including the user's feedback.
type PersistedArticle struct {
	ID             int64
	Title          string
	URL            string
	Source         string
	Published      time.Time
	Description    string
	Category       string
	RelevanceScore float64
	UserFeedback   int // -1, 0 or 1
	FetchedAt      time.Time
	Read           bool
}

// Category describes one bucket of the selection constraint.
type Category struct {
	Name        string   `yaml:"name"`
	Priority    int      `yaml:"priority"`
	Required    bool     `yaml:"required"`
	Minimum     int      `yaml:"minimum"`
	Keywords    []string `yaml:"keywords"`
	Description string   `yaml:"description"`
}

// Matches reports whether the candidate plausibly belongs to the category,
// either through the adapter's hint or a keyword hit in title/description.
func (cat Category) Matches(c Candidate) bool {
	if c.CategoryHint != "" && strings.EqualFold(c.CategoryHint, cat.Name) {
		return true
	}
	return ContainsAny(c.Title+" "+c.Description, cat.Keywords)
}

// SourceGroup sums several labels of one outlet under a single cap.
type SourceGroup struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
	Cap     int      `yaml:"cap"`
}

// SourceCaps limits how many selected articles one source may contribute.
type SourceCaps struct {
	Caps    map[string]int `yaml:"caps"`
	Default int            `yaml:"default"`
	Groups  []SourceGroup  `yaml:"groups"`
}

func (sc SourceCaps) group(source string) (SourceGroup, bool) {
	for _, g := range sc.Groups {
		for _, m := range g.Members {
			if strings.EqualFold(m, source) {
				return g, true
			}
		}
	}
	return SourceGroup{}, false
}

// KeyFor returns the counter key for a source: the group name for grouped
// labels, the label itself otherwise.
func (sc SourceCaps) KeyFor(source string) string {
	if g, ok := sc.group(source); ok {
		return "group:" + g.Name
	}
	return source
}

// CapFor returns the cap that applies to the source's counter.
func (sc SourceCaps) CapFor(source string) int {
	if g, ok := sc.group(source); ok && g.Cap > 0 {
		return g.Cap
	}
	if v, ok := sc.Caps[source]; ok {
		return v
	}
	return sc.Default
}

// SelectionConstraint is the exact-count, category and diversity contract of one feed.
type SelectionConstraint struct {
	ExactCount    int
	Categories    []Category
	SourceCaps    SourceCaps
	ForceCategory string // relabels every selected item (e.g. a sports-only feed)
}

// UnknownPriority ranks categories the constraint does not know about last.
const UnknownPriority = 999

// Priority returns the configured priority of a category name.
func (sc SelectionConstraint) Priority(name string) int {
	for _, c := range sc.Categories {
		if c.Name == name {
			return c.Priority
		}
	}
	return UnknownPriority
}

// Category looks up a configured category by name.
func (sc SelectionConstraint) Category(name string) (Category, bool) {
	for _, c := range sc.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Validate checks the constraint is usable.
func (sc SelectionConstraint) Validate() error {
	if sc.ExactCount <= 0 {
		return fmt.Errorf("exact count must be positive, got %d", sc.ExactCount)
	}
	if sc.SourceCaps.Default <= 0 {
		return fmt.Errorf("default source cap must be positive, got %d", sc.SourceCaps.Default)
	}
	seen := make(map[string]struct{}, len(sc.Categories))
	for _, c := range sc.Categories {
		if c.Name == "" {
			return fmt.Errorf("category with empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Minimum < 0 {
			return fmt.Errorf("category %q: negative minimum", c.Name)
		}
	}
	return nil
}
