// Package mcpserver exposes the enrichment pipeline as Model Context Protocol
// tools, so an assistant can transliterate and colour-code sentences while it
// builds study material.
//
// Tools:
//
//   - list_languages: supported languages and their analyzers.
//   - transliterate: tiered transliteration of one sentence.
//   - analyze_sentences: word-by-word grammar analysis of up to
//     [MaxSentences] sentences.
//
// Tool failures are reported as tool errors (IsError results), never as
// protocol errors.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
)

// MaxSentences bounds analyze_sentences input.
const MaxSentences = 32

// Enricher is the subset of the pipeline the tools call. [enrich.Enricher]
// implements it.
type Enricher interface {
	Languages() []language.Profile
	Resolve(key string) (language.Profile, bool)
	Analyzer(p language.Profile) grammar.Analyzer
	Transliterate(ctx context.Context, lang, text, supplied string) (translit.Result, language.Profile)
	Analyze(ctx context.Context, req enrich.Request) ([]grammar.SentenceAnalysis, string, error)
}

var _ Enricher = (*enrich.Enricher)(nil)

// ─── Tool I/O ────────────────────────────────────────────────────────────────

type listLanguagesInput struct{}

type languageInfo struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Analyzer  string `json:"analyzer"`
}

type listLanguagesOutput struct {
	Languages []languageInfo `json:"languages"`
}

type transliterateInput struct {
	Language string `json:"language" jsonschema:"language code, BCP 47 tag or English name"`
	Text     string `json:"text" jsonschema:"the sentence to transliterate"`
	Fallback string `json:"fallback,omitempty" jsonschema:"optional transcription to use when no engine produces a valid one"`
}

type transliterateOutput struct {
	Language string `json:"language"`
	Known    bool   `json:"known"`
	Text     string `json:"text"`
	Tier     string `json:"tier"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

type analyzeInput struct {
	Language       string   `json:"language" jsonschema:"language code, BCP 47 tag or English name"`
	Sentences      []string `json:"sentences" jsonschema:"sentences to analyse, in order"`
	TargetWord     string   `json:"target_word,omitempty" jsonschema:"the vocabulary word the sentences practise"`
	Complexity     string   `json:"complexity,omitempty" jsonschema:"beginner, intermediate or advanced"`
	NativeLanguage string   `json:"native_language,omitempty" jsonschema:"language the glosses are written in"`
}

type wordInfo struct {
	Word     string `json:"word"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Gloss    string `json:"gloss"`
}

type sentenceInfo struct {
	Sentence string     `json:"sentence"`
	HTML     string     `json:"html"`
	Footer   string     `json:"footer,omitempty"`
	Fallback bool       `json:"fallback,omitempty"`
	Words    []wordInfo `json:"words"`
}

type analyzeOutput struct {
	Language  string         `json:"language"`
	Analyzer  string         `json:"analyzer"`
	Direction string         `json:"direction"`
	Sentences []sentenceInfo `json:"sentences"`
}

// ─── Server ──────────────────────────────────────────────────────────────────

// New builds an MCP server with every tool registered.
func New(e Enricher, version string) *mcpsdk.Server {
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "glyphcard", Version: version}, nil)
	t := &tools{enricher: e}

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "list_languages",
		Description: "List the languages glyphcard knows, with script direction and grammar analyzer.",
	}, t.listLanguages)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "transliterate",
		Description: "Transcribe a sentence into IPA. Tries a rule engine, then a phoneme engine, " +
			"then the supplied fallback, and finally returns a placeholder. Never returns empty text.",
	}, t.transliterate)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "analyze_sentences",
		Description: "Categorise every word of each sentence by grammatical role and return " +
			"colour-coded HTML with glosses.",
	}, t.analyze)
	return s
}

// Run serves the tools over stdio until ctx is done or the client hangs up.
func Run(ctx context.Context, e Enricher, version string) error {
	if err := New(e, version).Run(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

type tools struct {
	enricher Enricher
}

func (t *tools) listLanguages(_ context.Context, _ *mcpsdk.CallToolRequest, _ listLanguagesInput) (*mcpsdk.CallToolResult, listLanguagesOutput, error) {
	profiles := t.enricher.Languages()
	out := listLanguagesOutput{Languages: make([]languageInfo, len(profiles))}
	for i, p := range profiles {
		out.Languages[i] = languageInfo{
			Code:      p.Code,
			Name:      p.DisplayName(),
			Direction: string(p.Direction),
			Analyzer:  t.enricher.Analyzer(p).Key(),
		}
	}
	return nil, out, nil
}

func (t *tools) transliterate(ctx context.Context, _ *mcpsdk.CallToolRequest, in transliterateInput) (*mcpsdk.CallToolResult, transliterateOutput, error) {
	res, p := t.enricher.Transliterate(ctx, in.Language, in.Text, in.Fallback)
	_, known := t.enricher.Resolve(in.Language)
	return nil, transliterateOutput{
		Language: p.Code,
		Known:    known,
		Text:     res.Text,
		Tier:     res.Tier.String(),
		Valid:    res.Valid,
		Reason:   string(res.Reason),
	}, nil
}

func (t *tools) analyze(ctx context.Context, _ *mcpsdk.CallToolRequest, in analyzeInput) (*mcpsdk.CallToolResult, analyzeOutput, error) {
	if len(in.Sentences) > MaxSentences {
		return nil, analyzeOutput{}, fmt.Errorf("too many sentences: %d, at most %d", len(in.Sentences), MaxSentences)
	}
	complexity := grammar.Complexity(in.Complexity)
	if complexity != "" && !complexity.IsValid() {
		return nil, analyzeOutput{}, fmt.Errorf("complexity %q is invalid; valid values: beginner, intermediate, advanced", in.Complexity)
	}

	analyses, key, err := t.enricher.Analyze(ctx, enrich.Request{
		Language:       in.Language,
		Sentences:      in.Sentences,
		TargetWord:     in.TargetWord,
		Complexity:     complexity,
		NativeLanguage: in.NativeLanguage,
	})
	if err != nil {
		observe.Logger(ctx).Warn("mcpserver: analyze failed", "language", in.Language, "err", err)
		return nil, analyzeOutput{}, err
	}

	p, _ := t.enricher.Resolve(in.Language)
	out := analyzeOutput{
		Language:  p.Code,
		Analyzer:  key,
		Direction: string(p.Direction),
		Sentences: make([]sentenceInfo, len(analyses)),
	}
	for i, a := range analyses {
		out.Sentences[i] = sentenceInfo{
			Sentence: a.Sentence,
			HTML:     a.HTML,
			Footer:   a.Footer,
			Fallback: a.Fallback,
			Words:    words(a.Explanations),
		}
	}
	return nil, out, nil
}

func words(ex []grammar.Explanation) []wordInfo {
	out := make([]wordInfo, len(ex))
	for i, e := range ex {
		out[i] = wordInfo{Word: e.Word, Category: e.Category, Label: e.Label, Color: e.Color, Gloss: e.Gloss}
	}
	return out
}
