package grammar

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Predicate reports whether a normalised role label belongs to a category.
// Labels passed to a Predicate are the output of [Normalize].
type Predicate func(label string) bool

// Rule maps role labels matching Match onto Category.
type Rule struct {
	Category string
	Match    Predicate
}

// Normalize canonicalises a free-form role label: lower case, separators and
// punctuation turned into single spaces, spelled-out letters ("n o u n")
// joined, and duplicated tokens ("verb verb", "noun: noun", "nounnoun")
// collapsed.
func Normalize(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, raw)

	tokens := joinSpelled(strings.Fields(mapped))
	out := tokens[:0]
	for _, t := range tokens {
		t = undouble(t)
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

// joinSpelled merges runs of two or more single-rune tokens into one token.
func joinSpelled(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && utf8.RuneCountInString(tokens[j]) == 1 {
			j++
		}
		if j-i >= 2 {
			out = append(out, strings.Join(tokens[i:j], ""))
			i = j
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

// undouble turns "nounnoun" into "noun". Halves shorter than three runes are
// left alone so that words like "papa" survive.
func undouble(t string) string {
	r := []rune(t)
	if len(r) < 6 || len(r)%2 != 0 {
		return t
	}
	half := len(r) / 2
	if string(r[:half]) == string(r[half:]) {
		return string(r[:half])
	}
	return t
}

func compact(label string) string {
	return strings.ReplaceAll(label, " ", "")
}

// containsPhrase reports whether phrase occurs as a whole-token run in label.
func containsPhrase(label, phrase string) bool {
	if label == phrase {
		return true
	}
	return strings.HasPrefix(label, phrase+" ") ||
		strings.HasSuffix(label, " "+phrase) ||
		strings.Contains(label, " "+phrase+" ")
}

// Words matches labels containing any of phrases as whole tokens, so "verb"
// matches "main verb" but not "adverb".
func Words(phrases ...string) Predicate {
	norm := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			norm = append(norm, n)
		}
	}
	return func(label string) bool {
		for _, p := range norm {
			if containsPhrase(label, p) {
				return true
			}
		}
		return false
	}
}

// Stems matches labels with any token starting with one of stems, so
// "adject" matches "adjectival phrase".
func Stems(stems ...string) Predicate {
	return func(label string) bool {
		for _, tok := range strings.Fields(label) {
			for _, s := range stems {
				if strings.HasPrefix(tok, s) {
					return true
				}
			}
		}
		return false
	}
}

// AllOf matches when every predicate matches.
func AllOf(preds ...Predicate) Predicate {
	return func(label string) bool {
		for _, p := range preds {
			if !p(label) {
				return false
			}
		}
		return true
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(label string) bool { return !p(label) }
}

// orderRules returns rules stably sorted by the depth of their category in
// the parent hierarchy, deepest first. A rule for a child category therefore
// always precedes any rule for its parent, whatever order the table lists
// them in.
func orderRules(rules []Rule, byKey map[string]Category) []Rule {
	depth := func(key string) int {
		d := 0
		for seen := 0; seen <= len(byKey); seen++ {
			c, ok := byKey[key]
			if !ok || c.Parent == "" {
				return d
			}
			key = c.Parent
			d++
		}
		return d
	}
	out := slices.Clone(rules)
	slices.SortStableFunc(out, func(a, b Rule) int {
		return depth(b.Category) - depth(a.Category)
	})
	return out
}
