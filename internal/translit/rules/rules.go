// Package rules is the built-in, rule-based transliteration engine used as
// Tier 1.
//
// English words are looked up in an embedded pronouncing dictionary in CMU
// ARPAbet format, which carries lexical stress. Everything else, including
// English words missing from the dictionary, goes through per-language
// grapheme tables matched longest-first, with a per-language stress policy.
//
// An Engine is immutable after construction and safe for concurrent use.
package rules

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// Compile-time interface assertion.
var _ phoneme.Provider = (*Engine)(nil)

const (
	primaryStress   = "ˈ"
	secondaryStress = "ˌ"
)

// vowelRunes are the IPA symbols that start a syllable nucleus.
const vowelRunes = "aeiouyæɑɐɒɔəɚɛɜɝɞɘɤɨɪʉʊʌʏøœɯɵɶ"

// segment is one phoneme of a word's transcription.
type segment struct {
	ipa    string
	vowel  bool
	stress int // 0 none, 1 primary, 2 secondary
}

// stressPolicy decides which syllable of a multi-syllable word carries the
// primary stress mark when no rule marked one explicitly.
type stressPolicy int

const (
	stressNone stressPolicy = iota
	stressInitial
	stressPenultimate
	stressFinal
)

// Engine transliterates text with lexicon lookups and grapheme rules.
type Engine struct {
	tables  map[string]*graphemeTable
	english map[string][]segment
}

// Option is a functional option for Engine.
type Option func(*engineConfig)

type engineConfig struct {
	lexicons []io.Reader
}

// WithEnglishLexicon merges an additional pronouncing dictionary in CMU
// format (for example the full cmudict) over the embedded one.
func WithEnglishLexicon(r io.Reader) Option {
	return func(c *engineConfig) {
		c.lexicons = append(c.lexicons, r)
	}
}

// New builds an Engine with every built-in table.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o(cfg)
	}

	e := &Engine{
		tables:  make(map[string]*graphemeTable, len(builtinTables)),
		english: make(map[string][]segment),
	}
	for code, def := range builtinTables {
		e.tables[code] = newGraphemeTable(def.rules, def.stress)
	}
	for w, segs := range embeddedEnglish() {
		e.english[w] = segs
	}
	for _, r := range cfg.lexicons {
		extra, err := parseLexicon(r)
		if err != nil {
			return nil, fmt.Errorf("rules: load english lexicon: %w", err)
		}
		for w, segs := range extra {
			e.english[w] = segs
		}
	}
	return e, nil
}

// Name implements phoneme.Provider.
func (e *Engine) Name() string { return "rules" }

// Supports reports whether the engine has rules for code.
func (e *Engine) Supports(code string) bool {
	_, ok := e.tables[code]
	return ok
}

// Codes returns the supported rule codes, sorted.
func (e *Engine) Codes() []string {
	codes := make([]string, 0, len(e.tables))
	for c := range e.tables {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Phonemize implements phoneme.Provider. Words are transcribed independently
// and joined with single spaces; punctuation and digits are dropped.
func (e *Engine) Phonemize(ctx context.Context, text, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	table, ok := e.tables[code]
	if !ok {
		return "", fmt.Errorf("rules: %w: %q", phoneme.ErrUnsupportedLocale, code)
	}

	words := splitWords(text, code)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if code == "en" {
			if segs, ok := e.english[w]; ok {
				out = append(out, render(segs, stressNone))
				continue
			}
		}
		if s := render(table.segments(w), table.stress); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " "), nil
}

// splitWords lower-cases text and splits it into letter runs. Apostrophes
// inside a word are kept ("don't").
func splitWords(text, code string) []string {
	if code == "tr" {
		text = strings.ToLowerSpecial(unicode.TurkishCase, text)
	} else {
		text = strings.ToLower(text)
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && r != '\'' && r != '’'
	})
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'’")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// render joins segments and inserts stress marks before the onset of each
// stressed syllable. Lexical stress on segments wins over policy.
func render(segs []segment, policy stressPolicy) string {
	var nuclei []int
	marks := make(map[int]string)
	lexical := false
	for i, s := range segs {
		if !s.vowel {
			continue
		}
		nuclei = append(nuclei, i)
		switch s.stress {
		case 1:
			marks[onset(segs, i)] = primaryStress
			lexical = true
		case 2:
			marks[onset(segs, i)] = secondaryStress
		}
	}

	if !lexical && len(nuclei) >= 2 {
		target := -1
		switch policy {
		case stressInitial:
			target = nuclei[0]
		case stressPenultimate:
			target = nuclei[len(nuclei)-2]
		case stressFinal:
			target = nuclei[len(nuclei)-1]
		}
		if target >= 0 {
			marks[onset(segs, target)] = primaryStress
		}
	}

	var b strings.Builder
	for i, s := range segs {
		if m, ok := marks[i]; ok {
			b.WriteString(m)
		}
		b.WriteString(s.ipa)
	}
	return b.String()
}

// onset returns the index where the syllable with nucleus v begins: one
// consonant back, or the start of the word when only consonants precede it.
func onset(segs []segment, v int) int {
	j := v
	if j > 0 && !segs[j-1].vowel {
		j--
	}
	for k := 0; k < j; k++ {
		if segs[k].vowel {
			return j
		}
	}
	return 0
}

func isVowel(ipa string) bool {
	for _, r := range ipa {
		return strings.ContainsRune(vowelRunes, r)
	}
	return false
}
