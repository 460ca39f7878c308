// Package enrich produces card content: for each sentence of a target
// language, a transliteration and a grammar analysis.
//
// An [Enricher] is the single entry point the card assembler, the HTTP API
// and the MCP server call. It resolves the language, selects the analyzer
// and runs transliteration and batch analysis side by side.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/glyphcard/internal/batch"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
)

// DefaultTranslitConcurrency bounds concurrent transliterations per request.
const DefaultTranslitConcurrency = 8

// ErrNoSentences is returned when a request carries no sentences.
var ErrNoSentences = errors.New("enrich: no sentences")

// Request asks for cards for Sentences in Language.
type Request struct {
	// Language is a code, BCP 47 tag or English name.
	Language string `json:"language"`

	Sentences []string `json:"sentences"`

	// Transliterations optionally holds a caller-supplied Tier 3 candidate
	// per sentence, index-aligned with Sentences.
	Transliterations []string `json:"transliterations,omitempty"`

	TargetWord     string             `json:"target_word,omitempty"`
	Complexity     grammar.Complexity `json:"complexity,omitempty"`
	NativeLanguage string             `json:"native_language,omitempty"`
}

// Card is the content for one sentence.
type Card struct {
	Sentence        string                   `json:"sentence"`
	Transliteration translit.Result          `json:"transliteration"`
	Analysis        grammar.SentenceAnalysis `json:"analysis"`
}

// Result is the outcome of [Enricher.Enrich].
type Result struct {
	Language string `json:"language"`

	// Known is false when the language is not in the registry; such requests
	// get the placeholder transliteration and the generic analyzer.
	Known    bool   `json:"known"`
	Analyzer string `json:"analyzer"`
	Cards    []Card `json:"cards"`
}

// Option is a functional option for configuring an [Enricher].
type Option func(*Enricher)

// WithFallbackSource sets the Tier 3 source used for known languages when
// the caller supplies no transliteration of its own, for example an
// llmipa.Generator.
func WithFallbackSource(src translit.FallbackSource) Option {
	return func(e *Enricher) { e.fallback = src }
}

// WithTranslitConcurrency bounds concurrent transliterations per request.
// Default: 8.
func WithTranslitConcurrency(n int) Option {
	return func(e *Enricher) { e.translitConcurrency = max(n, 1) }
}

// Enricher combines the transliteration service and the batch coordinator.
// It is safe for concurrent use.
type Enricher struct {
	languages           *language.Registry
	translit            *translit.Service
	analyzers           *grammar.Registry
	batch               *batch.Coordinator
	fallback            translit.FallbackSource
	translitConcurrency int
}

// New returns an Enricher. All collaborators are required.
func New(languages *language.Registry, svc *translit.Service, analyzers *grammar.Registry, coord *batch.Coordinator, opts ...Option) *Enricher {
	e := &Enricher{
		languages:           languages,
		translit:            svc,
		analyzers:           analyzers,
		batch:               coord,
		translitConcurrency: DefaultTranslitConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Languages returns every supported language profile sorted by code.
func (e *Enricher) Languages() []language.Profile {
	return e.languages.All()
}

// Resolve returns the profile for key. Unknown keys yield a placeholder
// profile and known == false.
func (e *Enricher) Resolve(key string) (p language.Profile, known bool) {
	p, err := e.languages.Profile(key)
	if err != nil {
		return language.Unknown(key), false
	}
	return p, true
}

// Analyzer returns the grammar analyzer for p.
func (e *Enricher) Analyzer(p language.Profile) grammar.Analyzer {
	return e.analyzers.For(p)
}

// Transliterate transliterates one text. supplied is an optional Tier 3
// candidate; when empty and the language is known, the configured fallback
// source is used.
func (e *Enricher) Transliterate(ctx context.Context, lang, text, supplied string) (translit.Result, language.Profile) {
	p, known := e.Resolve(lang)
	return e.translit.Transliterate(ctx, text, p, e.fallbackFor(known, supplied)), p
}

func (e *Enricher) fallbackFor(known bool, supplied string) translit.FallbackSource {
	if s := strings.TrimSpace(supplied); s != "" {
		return translit.Text(s)
	}
	if known && e.fallback != nil {
		return e.fallback
	}
	return nil
}

// Analyze runs grammar analysis only.
func (e *Enricher) Analyze(ctx context.Context, req Request) ([]grammar.SentenceAnalysis, string, error) {
	if len(req.Sentences) == 0 {
		return nil, "", ErrNoSentences
	}
	p, _ := e.Resolve(req.Language)
	a := e.analyzers.For(p)
	out, err := e.batch.Analyze(ctx, e.batchRequest(req, p), a)
	if err != nil {
		return nil, a.Key(), fmt.Errorf("enrich: analyze: %w", err)
	}
	return out, a.Key(), nil
}

func (e *Enricher) batchRequest(req Request, p language.Profile) batch.Request {
	return batch.Request{
		Sentences:      req.Sentences,
		LanguageCode:   p.Code,
		Language:       p.DisplayName(),
		TargetWord:     req.TargetWord,
		Complexity:     req.Complexity,
		NativeLanguage: req.NativeLanguage,
	}
}

// Enrich produces one card per sentence. Transliteration and analysis run
// concurrently. The only error besides [ErrNoSentences] is cancellation of
// ctx.
func (e *Enricher) Enrich(ctx context.Context, req Request) (Result, error) {
	if len(req.Sentences) == 0 {
		return Result{}, ErrNoSentences
	}

	p, known := e.Resolve(req.Language)
	a := e.analyzers.For(p)
	if !known {
		observe.Logger(ctx).Info("enrich: unknown language, using placeholder transliteration and generic analyzer",
			"language", req.Language)
	}

	cards := make([]Card, len(req.Sentences))
	for i, s := range req.Sentences {
		cards[i].Sentence = s
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		analyses, err := e.batch.Analyze(gctx, e.batchRequest(req, p), a)
		if err != nil {
			return err
		}
		for i := range cards {
			cards[i].Analysis = analyses[i]
		}
		return nil
	})

	tg, tctx := errgroup.WithContext(gctx)
	tg.SetLimit(e.translitConcurrency)
	g.Go(func() error {
		for i, s := range req.Sentences {
			var supplied string
			if i < len(req.Transliterations) {
				supplied = req.Transliterations[i]
			}
			tg.Go(func() error {
				if err := tctx.Err(); err != nil {
					return err
				}
				cards[i].Transliteration = e.translit.Transliterate(tctx, s, p, e.fallbackFor(known, supplied))
				return nil
			})
		}
		return tg.Wait()
	})

	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("enrich: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("enrich: %w", err)
	}

	return Result{
		Language: p.Code,
		Known:    known,
		Analyzer: a.Key(),
		Cards:    cards,
	}, nil
}
