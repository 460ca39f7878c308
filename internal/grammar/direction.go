package grammar

import (
	"cmp"
	"slices"

	"github.com/MrWong99/glyphcard/internal/language"
)

// WithDirection returns a with explanations ordered for script direction dir.
// Family tables are shared across directions (Urdu uses the Indic table).
// An invalid dir or one matching a.Direction() returns a unchanged.
func WithDirection(a Analyzer, dir language.Direction) Analyzer {
	if !dir.IsValid() || a.Direction() == dir {
		return a
	}
	if ra, ok := a.(*RuleAnalyzer); ok {
		c := *ra
		c.direction = dir
		return &c
	}
	return directed{Analyzer: a, dir: dir}
}

// directed overrides the direction of an analyzer that is not a
// [RuleAnalyzer]. It can impose source order but not undo it.
type directed struct {
	Analyzer
	dir language.Direction
}

func (d directed) Direction() language.Direction { return d.dir }

func (d directed) RenderHTML(sentence string, words []WordAnalysis, compounds []CompoundAnalysis) Rendered {
	r := d.Analyzer.RenderHTML(sentence, words, compounds)
	if d.dir == language.RTL {
		sortBySource(r.Explanations)
	}
	return r
}

func (d directed) ParseBatchResponse(raw string, sentences []string) ([]ParseResult, error) {
	results, err := d.Analyzer.ParseBatchResponse(raw, sentences)
	if d.dir == language.RTL {
		for i := range results {
			if results[i].OK() {
				sortBySource(results[i].Analysis.Explanations)
			}
		}
	}
	return results, err
}

// sortBySource orders explanations by source position; unlocated words keep
// their relative order at the end.
func sortBySource(exps []Explanation) {
	slices.SortStableFunc(exps, func(x, y Explanation) int {
		return cmp.Compare(sortPos(x.Position), sortPos(y.Position))
	})
}
