package grammar

import (
	"cmp"
	"fmt"
	"html"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/glyphcard/internal/language"
)

// RenderHTML implements [Analyzer].
func (a *RuleAnalyzer) RenderHTML(sentence string, words []WordAnalysis, compounds []CompoundAnalysis) Rendered {
	r, _ := a.render(sentence, words, compounds)
	return r
}

// render lays out spans and returns the located rune offset of every word
// (-1 when the word could not be found).
func (a *RuleAnalyzer) render(sentence string, words []WordAnalysis, compounds []CompoundAnalysis) (Rendered, []int) {
	src := []rune(sentence)
	positions := locate(src, words)

	// owner[i] is the index of the word whose span starts at rune i.
	owner := make(map[int]int, len(words))
	for i, p := range positions {
		if p >= 0 {
			owner[p] = i
		}
	}

	var b strings.Builder
	for i := 0; i < len(src); {
		if wi, ok := owner[i]; ok {
			n := utf8.RuneCountInString(words[wi].Word)
			b.WriteString(span(a.Category(words[wi].Category), string(src[i:i+n])))
			i += n
			continue
		}
		b.WriteString(html.EscapeString(string(src[i])))
		i++
	}

	exps := make([]Explanation, 0, len(words))
	for i, w := range words {
		if strings.TrimSpace(w.Word) == "" {
			continue
		}
		c := a.Category(w.Category)
		exps = append(exps, Explanation{
			Word:     w.Word,
			Category: c.Key,
			Label:    c.Label,
			Color:    c.Color,
			Gloss:    w.Gloss,
			Position: positions[i],
		})
	}
	if a.direction == language.RTL {
		sortBySource(exps)
	}

	return Rendered{
		HTML:         b.String(),
		Footer:       a.footer(compounds),
		Explanations: exps,
	}, positions
}

func sortPos(p int) int {
	if p < 0 {
		return int(^uint(0) >> 1)
	}
	return p
}

func (a *RuleAnalyzer) footer(compounds []CompoundAnalysis) string {
	var b strings.Builder
	for _, c := range compounds {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		b.WriteString(`<div class="grammar-compound">`)
		b.WriteString(span(a.Category(c.Category), text))
		if g := strings.TrimSpace(c.Gloss); g != "" {
			b.WriteString(` <span class="grammar-gloss">`)
			b.WriteString(html.EscapeString(g))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</div>`)
	}
	if b.Len() == 0 {
		return ""
	}
	return `<div class="grammar-compounds">` + b.String() + `</div>`
}

func span(c Category, text string) string {
	return fmt.Sprintf(`<span class="grammar-%s" style="color:%s">%s</span>`,
		html.EscapeString(c.Class), html.EscapeString(c.Color), html.EscapeString(text))
}

// locate claims non-overlapping occurrences of words in src, longest word
// first. For each word an occurrence on word boundaries is preferred; scripts
// written without spaces fall back to the first free occurrence. Matching is
// exact first, then case-insensitive.
func locate(src []rune, words []WordAnalysis) []int {
	positions := make([]int, len(words))
	order := make([]int, 0, len(words))
	for i, w := range words {
		positions[i] = -1
		if w.Word != "" {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return cmp.Compare(utf8.RuneCountInString(words[y].Word), utf8.RuneCountInString(words[x].Word))
	})

	claimed := make([]bool, len(src))
	for _, wi := range order {
		needle := []rune(words[wi].Word)
		pos := find(src, needle, claimed, runesEqual)
		if pos < 0 {
			pos = find(src, needle, claimed, runesEqualFold)
		}
		if pos < 0 {
			continue
		}
		for k := pos; k < pos+len(needle); k++ {
			claimed[k] = true
		}
		positions[wi] = pos
	}
	return positions
}

func find(src, needle []rune, claimed []bool, eq func(a, b []rune) bool) int {
	first := -1
	for i := 0; i+len(needle) <= len(src); i++ {
		if !free(claimed, i, len(needle)) || !eq(src[i:i+len(needle)], needle) {
			continue
		}
		if atBoundary(src, i, len(needle)) {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

func free(claimed []bool, at, n int) bool {
	for k := at; k < at+n; k++ {
		if claimed[k] {
			return false
		}
	}
	return true
}

func atBoundary(src []rune, at, n int) bool {
	if at > 0 && isWordRune(src[at-1]) {
		return false
	}
	if end := at + n; end < len(src) && isWordRune(src[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func runesEqual(a, b []rune) bool { return slices.Equal(a, b) }

func runesEqualFold(a, b []rune) bool {
	return strings.EqualFold(string(a), string(b))
}
