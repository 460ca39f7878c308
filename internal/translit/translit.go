// Package translit implements the tiered transliteration service.
//
// A [Service] turns a sentence into a phonetic transcription by trying, in
// order:
//
//  1. the rule engine (Tier 1), skipped for languages without a rule code and
//     for logographic scripts where it would emit a romanized reading;
//  2. the phoneme frontend (Tier 2), addressed by the profile's locale code;
//  3. a caller-supplied [FallbackSource] (Tier 3), accepted with a warning
//     when it fails validation but carries no hard contamination;
//  4. a language-named placeholder.
//
// Tiers 1 and 2 are hard-gated by [ipa.Validate]. Engine errors, timeouts and
// open circuit breakers count as "produced nothing" and are recorded in the
// result's attempt log; they are never returned to the caller. For non-empty
// input the result text is never empty.
package translit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/glyphcard/internal/ipa"
	"github.com/MrWong99/glyphcard/internal/language"
)

// Tier identifies which strategy produced a transliteration.
type Tier int

const (
	// TierNone marks the empty result for empty input.
	TierNone Tier = iota
	// TierRules is the rule-based engine.
	TierRules
	// TierPhoneme is the phoneme frontend.
	TierPhoneme
	// TierFallback is the caller-supplied fallback text.
	TierFallback
	// TierPlaceholder is the terminal "[transliteration unavailable …]" text.
	TierPlaceholder
)

// String returns the tier's label as used in logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierRules:
		return "rules"
	case TierPhoneme:
		return "phoneme"
	case TierFallback:
		return "fallback"
	case TierPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText encodes t as its label.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Failure labels recorded in [Attempt.Failure].
const (
	FailureCircuitOpen = "circuit_open"
	FailureUnavailable = "unavailable"
	FailureUnsupported = "unsupported"
	FailureTimeout     = "timeout"
	FailureError       = "error"
	FailureInvalid     = "invalid"
	FailureRejected    = "rejected"
)

// Attempt records one tier's try.
type Attempt struct {
	Tier   Tier
	Engine string

	// Output is the raw candidate the engine produced, if any.
	Output string

	// Accepted is true for the attempt whose output became the result.
	Accepted bool

	// Cached is true when Output came from the cache.
	Cached bool

	// Failure is one of the Failure* labels; empty when Accepted.
	Failure string

	// Validation is the validator's verdict on Output.
	Validation ipa.Reason

	// Err is the engine error, if any.
	Err error

	Duration time.Duration
}

// Result is the outcome of [Service.Transliterate].
type Result struct {
	// Text is the transliteration. Empty only for empty input.
	Text string `json:"text"`

	// Tier produced Text.
	Tier Tier `json:"tier"`

	// Valid reports whether Text passed [ipa.Validate]. A Tier 3 text
	// accepted with a warning and the placeholder are not valid.
	Valid bool `json:"valid"`

	// Reason is the validation failure for an accepted-with-warning Tier 3
	// text.
	Reason ipa.Reason `json:"reason,omitempty"`

	// Attempts lists every tier tried, in order.
	Attempts []Attempt `json:"-"`
}

// Placeholder returns the terminal tier's text for p.
func Placeholder(p language.Profile) string {
	return "[transliteration unavailable for " + p.DisplayName() + "]"
}

// ─── Tier 3 sources ──────────────────────────────────────────────────────────

// FallbackSource supplies the Tier 3 candidate. It is consulted only when
// Tiers 1 and 2 produced nothing usable.
type FallbackSource interface {
	Fallback(ctx context.Context, text string, p language.Profile) (string, error)
}

// Text is a static [FallbackSource], typically a transliteration the caller
// already received from a model alongside other content.
type Text string

// Fallback implements [FallbackSource].
func (t Text) Fallback(context.Context, string, language.Profile) (string, error) {
	return string(t), nil
}

// FallbackFunc adapts a function to [FallbackSource].
type FallbackFunc func(ctx context.Context, text string, p language.Profile) (string, error)

// Fallback implements [FallbackSource].
func (f FallbackFunc) Fallback(ctx context.Context, text string, p language.Profile) (string, error) {
	return f(ctx, text, p)
}

// ─── Tier 3 policy ───────────────────────────────────────────────────────────

// Policy decides what happens to a Tier 3 candidate that fails validation.
type Policy string

const (
	// PolicyLenient accepts the candidate with a warning unless it carries
	// hard contamination.
	PolicyLenient Policy = "lenient"

	// PolicyStrict discards it; the placeholder is used instead.
	PolicyStrict Policy = "strict"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	return p == PolicyLenient || p == PolicyStrict
}

func cacheKey(tier Tier, lang, text string) string {
	return fmt.Sprintf("translit:%d:%s:%s", int(tier), lang, strings.TrimSpace(text))
}
