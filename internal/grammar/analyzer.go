package grammar

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/glyphcard/internal/language"
)

const (
	// MinCategories is the smallest category set an analyzer may define.
	MinCategories = 15

	// MaxCategories is the largest category set an analyzer may define.
	MaxCategories = 25
)

// Table is the per-family data that configures a [RuleAnalyzer].
type Table struct {
	// Key is the analyzer's registry key.
	Key string

	// Direction is the script direction. Empty means LTR.
	Direction language.Direction

	// Categories is the closed category set, content words first. It must
	// include [CategoryOther].
	Categories []Category

	// Rules map free-form role labels to categories. Rules are evaluated in
	// order after sorting children before parents.
	Rules []Rule

	// PromptHints are family-specific instructions appended to prompts.
	PromptHints []string
}

// RuleAnalyzer is the shared [Analyzer] implementation driven by a [Table].
// It is immutable after construction and safe for concurrent use.
type RuleAnalyzer struct {
	key        string
	direction  language.Direction
	categories []Category
	byKey      map[string]Category
	exact      map[string]string
	rules      []Rule
	matcher    *labelMatcher
	hints      []string
	other      Category
}

// Compile-time interface assertion.
var _ Analyzer = (*RuleAnalyzer)(nil)

// NewRuleAnalyzer validates t and builds an analyzer from it.
func NewRuleAnalyzer(t Table) (*RuleAnalyzer, error) {
	if err := validateTable(t); err != nil {
		return nil, fmt.Errorf("grammar: table %q: %w", t.Key, err)
	}

	a := &RuleAnalyzer{
		key:        t.Key,
		direction:  t.Direction,
		categories: slices.Clone(t.Categories),
		byKey:      make(map[string]Category, len(t.Categories)),
		exact:      make(map[string]string, len(t.Categories)*4),
		hints:      slices.Clone(t.PromptHints),
	}
	if a.direction == "" {
		a.direction = language.LTR
	}
	for _, c := range t.Categories {
		a.byKey[c.Key] = c
		for _, form := range []string{Normalize(c.Key), Normalize(c.Label)} {
			if form == "" {
				continue
			}
			if _, taken := a.exact[form]; !taken {
				a.exact[form] = c.Key
			}
			if _, taken := a.exact[compact(form)]; !taken {
				a.exact[compact(form)] = c.Key
			}
		}
	}
	a.other = a.byKey[CategoryOther]
	a.rules = orderRules(t.Rules, a.byKey)
	a.matcher = newLabelMatcher(t.Categories)
	return a, nil
}

func validateTable(t Table) error {
	var errs []error
	if t.Key == "" {
		errs = append(errs, errors.New("key is required"))
	}
	if t.Direction != "" && !t.Direction.IsValid() {
		errs = append(errs, fmt.Errorf("direction %q is invalid", t.Direction))
	}
	if n := len(t.Categories); n < MinCategories || n > MaxCategories {
		errs = append(errs, fmt.Errorf("has %d categories, want %d to %d", n, MinCategories, MaxCategories))
	}

	keys := make(map[string]bool, len(t.Categories))
	for i, c := range t.Categories {
		switch {
		case c.Key == "":
			errs = append(errs, fmt.Errorf("categories[%d]: key is required", i))
		case keys[c.Key]:
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate key %q", i, c.Key))
		}
		if c.Color == "" || c.Class == "" {
			errs = append(errs, fmt.Errorf("categories[%d] (%s): color and class are required", i, c.Key))
		}
		keys[c.Key] = true
	}
	if !keys[CategoryOther] {
		errs = append(errs, fmt.Errorf("category %q is required", CategoryOther))
	}
	for i, c := range t.Categories {
		if c.Parent == "" {
			continue
		}
		if !keys[c.Parent] {
			errs = append(errs, fmt.Errorf("categories[%d] (%s): unknown parent %q", i, c.Key, c.Parent))
		}
		if hasCycle(c.Key, t.Categories) {
			errs = append(errs, fmt.Errorf("categories[%d] (%s): parent cycle", i, c.Key))
		}
	}
	for i, r := range t.Rules {
		if !keys[r.Category] {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown category %q", i, r.Category))
		}
		if r.Match == nil {
			errs = append(errs, fmt.Errorf("rules[%d] (%s): predicate is required", i, r.Category))
		}
	}
	return errors.Join(errs...)
}

func hasCycle(key string, categories []Category) bool {
	parent := make(map[string]string, len(categories))
	for _, c := range categories {
		parent[c.Key] = c.Parent
	}
	seen := map[string]bool{key: true}
	for p := parent[key]; p != ""; p = parent[p] {
		if seen[p] {
			return true
		}
		seen[p] = true
	}
	return false
}

// Key implements [Analyzer].
func (a *RuleAnalyzer) Key() string { return a.key }

// Direction implements [Analyzer].
func (a *RuleAnalyzer) Direction() language.Direction { return a.direction }

// Categories implements [Analyzer]. The returned slice is a copy.
func (a *RuleAnalyzer) Categories() []Category { return slices.Clone(a.categories) }

// Category returns the category for key, or the catch-all category when key
// is unknown.
func (a *RuleAnalyzer) Category(key string) Category {
	if c, ok := a.byKey[key]; ok {
		return c
	}
	return a.other
}

// ResolveCategory implements [Analyzer]. Resolution runs in four steps:
// exact key or label match, ordered rules, near-miss spelling match, and
// finally [CategoryOther]. The result is always a key of this analyzer.
func (a *RuleAnalyzer) ResolveCategory(raw string) string {
	label := Normalize(raw)
	if label == "" {
		return CategoryOther
	}
	if key, ok := a.exact[label]; ok {
		return key
	}
	if key, ok := a.exact[compact(label)]; ok {
		return key
	}
	for _, r := range a.rules {
		if r.Match(label) {
			return r.Category
		}
	}
	if key, ok := a.matcher.match(label); ok {
		return key
	}
	return CategoryOther
}

// Fallback returns the degraded analysis for sentence using this analyzer's
// catch-all category.
func (a *RuleAnalyzer) Fallback(sentence string) SentenceAnalysis {
	return fallbackWith(sentence, a.key, a.other)
}
