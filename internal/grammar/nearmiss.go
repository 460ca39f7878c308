package grammar

import (
	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.90
)

// labelMatcher resolves misspelt role labels ("adjectve", "nuon") to a
// category key.
//
// It works in two stages. Double Metaphone codes of the compacted label are
// compared against those of every category key and label; a category whose
// codes overlap becomes a phonetic candidate and is accepted when its
// Jaro-Winkler similarity reaches phoneticThreshold. Without any phonetic
// candidate, pure Jaro-Winkler similarity must reach the stricter
// fuzzyThreshold.
//
// A labelMatcher is read-only after construction and safe for concurrent use.
type labelMatcher struct {
	entries           []matchEntry
	phoneticThreshold float64
	fuzzyThreshold    float64
}

type matchEntry struct {
	key   string
	forms []string
	codes map[string]struct{}
}

func newLabelMatcher(categories []Category) *labelMatcher {
	m := &labelMatcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, c := range categories {
		if c.Key == CategoryOther {
			continue
		}
		e := matchEntry{key: c.Key, codes: make(map[string]struct{}, 4)}
		for _, f := range []string{Normalize(c.Key), Normalize(c.Label)} {
			if f == "" {
				continue
			}
			e.forms = append(e.forms, f)
			addCodes(e.codes, compact(f))
		}
		m.entries = append(m.entries, e)
	}
	return m
}

// match returns the best category key for the normalised label, or false.
func (m *labelMatcher) match(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	input := make(map[string]struct{}, 2)
	addCodes(input, compact(label))

	type candidate struct {
		key      string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, e := range m.entries {
		score := 0.0
		for _, f := range e.forms {
			if s := jwScore(label, f); s > score {
				score = s
			}
		}
		if codesOverlap(input, e.codes) {
			if score >= m.phoneticThreshold && (!best.phonetic || score > best.score) {
				best = candidate{key: e.key, score: score, phonetic: true}
			}
		} else if !best.phonetic && score >= m.fuzzyThreshold && score > best.score {
			best = candidate{key: e.key, score: score}
		}
	}
	return best.key, best.key != ""
}

// jwScore is the better of full-string and space-stripped similarity.
func jwScore(a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if ca, cb := compact(a), compact(b); ca != a || cb != b {
		if s := matchr.JaroWinkler(ca, cb, false); s > score {
			score = s
		}
	}
	return score
}

func addCodes(codes map[string]struct{}, s string) {
	p, sec := matchr.DoubleMetaphone(s)
	if p != "" {
		codes[p] = struct{}{}
	}
	if sec != "" {
		codes[sec] = struct{}{}
	}
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
