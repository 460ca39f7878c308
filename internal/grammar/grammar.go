// Package grammar implements word-by-word grammatical categorisation of
// sentences for colour-coded learner display.
//
// An [Analyzer] owns a closed set of [Category] values for one language
// family. It builds the batch prompt sent to a language model, parses the
// model's JSON reply tolerantly, maps free-form role labels onto its closed
// set ([Analyzer.ResolveCategory]), and renders the result as HTML spans.
//
// All built-in analyzers share one implementation, [RuleAnalyzer], configured
// by a per-family [Table] of categories and ordered (predicate, category)
// rules. [Registry] maps analyzer keys to analyzers; [Generic] is the
// analyzer callers fall back to for unknown keys.
package grammar

import (
	"errors"
	"strings"

	"github.com/MrWong99/glyphcard/internal/language"
)

// MaxBatchSentences is the largest number of sentences a single prompt may
// carry.
const MaxBatchSentences = 8

// CategoryOther is the catch-all category key every analyzer defines.
const CategoryOther = "other"

var (
	// ErrMalformedResponse marks model output that could not be parsed, for
	// the whole batch or for one sentence.
	ErrMalformedResponse = errors.New("grammar: malformed model response")

	// ErrBatchSize is returned by BuildBatchPrompt for zero or more than
	// [MaxBatchSentences] sentences.
	ErrBatchSize = errors.New("grammar: batch must hold 1 to 8 sentences")
)

// Category is one canonical grammatical role.
type Category struct {
	// Key is the canonical identifier, lower-case with underscores.
	Key string `json:"key"`

	// Label is the learner-facing name.
	Label string `json:"label"`

	// Color is the CSS hex colour used in rendered spans.
	Color string `json:"color"`

	// Class is the CSS class suffix: spans carry "grammar-<Class>".
	Class string `json:"class"`

	// Parent is the key of the more generic category this one refines, if
	// any. Rules for a child are always evaluated before its parent's.
	Parent string `json:"parent,omitempty"`

	// Description explains the category to the model in prompts.
	Description string `json:"-"`
}

// Other is the shared catch-all category.
var Other = Category{
	Key:         CategoryOther,
	Label:       "Other",
	Color:       "#6B7280",
	Class:       "other",
	Description: "anything that fits no other category",
}

// WordAnalysis is the analysis of one word.
type WordAnalysis struct {
	Word     string `json:"word"`
	Category string `json:"category"`
	Gloss    string `json:"gloss"`

	// Position is the rune offset of Word in the sentence, or -1 when it
	// could not be located.
	Position int `json:"position"`
}

// CompoundAnalysis describes a multi-word group. Compounds are rendered in a
// footer only and never affect per-word spans.
type CompoundAnalysis struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Gloss    string `json:"gloss"`
}

// Explanation is one entry of the learner-facing gloss list.
type Explanation struct {
	Word     string `json:"word"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Gloss    string `json:"gloss"`
	Position int    `json:"position"`
}

// Rendered is the output of [Analyzer.RenderHTML].
type Rendered struct {
	// HTML is the sentence with every located word wrapped in a span.
	HTML string `json:"html"`

	// Footer lists compounds; empty when there are none.
	Footer string `json:"footer,omitempty"`

	// Explanations are in reading order.
	Explanations []Explanation `json:"explanations"`
}

// SentenceAnalysis is the complete analysis of one sentence.
type SentenceAnalysis struct {
	Sentence  string             `json:"sentence"`
	Analyzer  string             `json:"analyzer"`
	Words     []WordAnalysis     `json:"words"`
	Compounds []CompoundAnalysis `json:"compounds,omitempty"`
	Rendered

	// Fallback marks a degraded single-span analysis.
	Fallback bool `json:"fallback,omitempty"`
}

// Complexity is the learner level a prompt is pitched at.
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// IsValid reports whether c is a known level.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityBeginner, ComplexityIntermediate, ComplexityAdvanced:
		return true
	}
	return false
}

// PromptRequest carries the inputs of [Analyzer.BuildBatchPrompt].
type PromptRequest struct {
	// Sentences holds 1 to [MaxBatchSentences] sentences.
	Sentences []string

	// Language is the display name of the sentences' language.
	Language string

	// TargetWord is the vocabulary item the sentences were chosen for.
	TargetWord string

	// Complexity defaults to intermediate.
	Complexity Complexity

	// NativeLanguage is the language glosses are written in. Default: English.
	NativeLanguage string
}

// ParseResult is the per-sentence outcome of parsing a batch response.
// Exactly one of Analysis and Err is meaningful.
type ParseResult struct {
	Analysis SentenceAnalysis
	Err      error
}

// OK reports whether the sentence parsed.
func (r ParseResult) OK() bool { return r.Err == nil }

// Analyzer is the capability contract of a grammar analyzer.
type Analyzer interface {
	// Key returns the analyzer's registry key.
	Key() string

	// Direction returns the script direction the analyzer renders for.
	Direction() language.Direction

	// Categories returns the closed category set, content words first.
	Categories() []Category

	// BuildBatchPrompt renders the model prompt for req.
	BuildBatchPrompt(req PromptRequest) (string, error)

	// ParseBatchResponse parses raw against sentences. The returned slice has
	// len(sentences) entries. A non-nil error means nothing could be parsed.
	ParseBatchResponse(raw string, sentences []string) ([]ParseResult, error)

	// ResolveCategory maps a free-form role label to a canonical key.
	ResolveCategory(raw string) string

	// RenderHTML renders words and compounds for sentence.
	RenderHTML(sentence string, words []WordAnalysis, compounds []CompoundAnalysis) Rendered
}

// Fallback returns the degraded analysis for sentence: the whole sentence
// as a single span in the catch-all category.
func Fallback(sentence string) SentenceAnalysis {
	return fallbackWith(sentence, "", Other)
}

func fallbackWith(sentence, analyzer string, other Category) SentenceAnalysis {
	sentence = strings.TrimSpace(sentence)
	words := []WordAnalysis{{Word: sentence, Category: other.Key, Position: 0}}
	if sentence == "" {
		words = nil
	}
	var r Rendered
	if sentence != "" {
		r = Rendered{
			HTML: span(other, sentence),
			Explanations: []Explanation{{
				Word: sentence, Category: other.Key, Label: other.Label, Color: other.Color,
			}},
		}
	}
	return SentenceAnalysis{
		Sentence: sentence,
		Analyzer: analyzer,
		Words:    words,
		Rendered: r,
		Fallback: true,
	}
}
