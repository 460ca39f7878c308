package resilience

import (
	"context"
	"errors"
	"strings"

	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// PhonemeFallback implements [phoneme.Provider] across several phoneme
// frontends, e.g. a local espeak-ng binary backed by a remote service.
//
// An engine answering [phoneme.ErrUnsupportedLocale] is healthy; the next
// engine is tried but the breaker is not charged for it.
type PhonemeFallback struct {
	group *FallbackGroup[phoneme.Provider]
}

var _ phoneme.Provider = (*PhonemeFallback)(nil)

// NewPhonemeFallback creates a [PhonemeFallback] with primary as the preferred
// engine. The entry name is taken from primary.Name().
func NewPhonemeFallback(primary phoneme.Provider, cfg FallbackConfig) *PhonemeFallback {
	if cfg.CircuitBreaker.IsFailure == nil {
		cfg.CircuitBreaker.IsFailure = IsPhonemeFailure
	}
	return &PhonemeFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional phoneme engine.
func (f *PhonemeFallback) AddFallback(provider phoneme.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Breakers reports each engine's breaker.
func (f *PhonemeFallback) Breakers() map[string]Snapshot { return f.group.Snapshots() }

// Name joins the engine names with "|".
func (f *PhonemeFallback) Name() string {
	return strings.Join(f.group.Names(), "|")
}

// Phonemize returns the first engine's non-empty output. When every engine
// rejected the locale the result is [phoneme.ErrUnsupportedLocale] so callers
// can tell "not for this language" from "broken".
func (f *PhonemeFallback) Phonemize(ctx context.Context, text, code string) (string, error) {
	unsupported := 0
	out, err := ExecuteWithResult(f.group, func(p phoneme.Provider) (string, error) {
		s, err := p.Phonemize(ctx, text, code)
		if errors.Is(err, phoneme.ErrUnsupportedLocale) {
			unsupported++
		}
		return s, err
	})
	if err != nil && unsupported == f.group.Len() {
		return "", phoneme.ErrUnsupportedLocale
	}
	return out, err
}

// IsPhonemeFailure reports whether err should count against a phoneme
// engine's circuit breaker. Unsupported locales and caller cancellation do
// not.
func IsPhonemeFailure(err error) bool {
	return !errors.Is(err, phoneme.ErrUnsupportedLocale) && !errors.Is(err, context.Canceled)
}
