// Package llmipa generates Tier 3 transliteration candidates with a
// language model.
//
// A [Generator] is a lazy [translit.FallbackSource]: the model is called only
// when the rule engine and the phoneme frontend both produced nothing usable.
// Its output is validated by the transliteration service like any other
// Tier 3 text.
package llmipa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/glyphcard/internal/cache"
	"github.com/MrWong99/glyphcard/internal/ipa"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/llmjson"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/types"
)

const (
	defaultTemperature = 0.0
	defaultMaxTokens   = 512
)

const systemPrompt = `You are a phonetician. You transcribe text into the International Phonetic Alphabet (IPA).
Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"ipa": "<transcription>"}`

// response is the expected JSON structure returned by the model.
type response struct {
	IPA string `json:"ipa"`
}

// Option is a functional option for configuring a [Generator].
type Option func(*Generator)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(g *Generator) { g.temperature = temp }
}

// WithMaxTokens caps the completion length. Default: 512.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// WithCache stores generated transcriptions that pass [ipa.Validate] under
// "llmipa:<lang>:<text>" for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cache = c
		g.ttl = ttl
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithProviderName sets the provider label used in metrics. Default: "llm".
func WithProviderName(name string) Option {
	return func(g *Generator) { g.providerName = name }
}

// Generator asks an [llm.Provider] for an IPA transcription. It is safe for
// concurrent use.
type Generator struct {
	llm          llm.Provider
	temperature  float64
	maxTokens    int
	cache        cache.Cache
	ttl          time.Duration
	metrics      *observe.Metrics
	providerName string
}

var _ translit.FallbackSource = (*Generator)(nil)

// New returns a [Generator] backed by provider.
func New(provider llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		llm:          provider,
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
		cache:        cache.Nop{},
		providerName: "llm",
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	if g.cache == nil {
		g.cache = cache.Nop{}
	}
	return g
}

// Fallback implements [translit.FallbackSource]. Model and parse errors are
// returned; the transliteration service records them as a Tier 3 failure.
func (g *Generator) Fallback(ctx context.Context, text string, p language.Profile) (string, error) {
	key := "llmipa:" + p.Code + ":" + strings.TrimSpace(text)
	v, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		observe.Logger(ctx).Debug("llmipa: cache read failed", "err", err)
	}
	if ok {
		return string(v), nil
	}

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  g.temperature,
		MaxTokens:    g.llm.Capabilities().ClampMaxTokens(g.maxTokens),
		JSONMode:     true,
		Messages: []types.Message{
			{Role: "user", Content: buildPrompt(text, p)},
		},
	}

	start := time.Now()
	resp, err := g.llm.Complete(ctx, req)
	g.metrics.RecordLLMCall(ctx, g.providerName, time.Since(start).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("llmipa: complete: %w", err)
	}
	if resp == nil {
		return "", errors.New("llmipa: complete: empty response")
	}

	var r response
	if err := llmjson.Decode(resp.Content, &r); err != nil {
		return "", fmt.Errorf("llmipa: parse response: %w", err)
	}
	out := strings.Trim(strings.TrimSpace(r.IPA), "/[]")
	if out == "" {
		return "", errors.New("llmipa: model returned an empty transcription")
	}

	// Only accepted transcriptions are cached.
	if valid, reason := ipa.Validate(out, p); !valid {
		observe.Logger(ctx).Debug("llmipa: not caching transcription", "lang", p.Code, "reason", string(reason))
		return out, nil
	}
	if err := g.cache.Set(ctx, key, []byte(out), g.ttl); err != nil {
		observe.Logger(ctx).Debug("llmipa: cache write failed", "err", err)
	}
	return out, nil
}

// buildPrompt renders the per-request instruction for p.
func buildPrompt(text string, p language.Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Language: %s", p.DisplayName())
	if p.NativeName != "" && p.NativeName != p.Name {
		fmt.Fprintf(&sb, " (%s)", p.NativeName)
	}
	sb.WriteString("\nTranscribe the following text into broad IPA. Mark primary stress with ˈ where the language has lexical stress.")
	if p.Tonal {
		sb.WriteString("\nMark every syllable's tone with Chao tone letters (˥ ˦ ˧ ˨ ˩).")
	}
	if !p.RomanizationAllowed {
		sb.WriteString("\nDo NOT use any romanization system (no pinyin, romaji or similar). Use IPA symbols only.")
	}
	sb.WriteString("\nDo not include the original script, slashes or brackets.")
	fmt.Fprintf(&sb, "\n\nText: %s", text)
	return sb.String()
}
