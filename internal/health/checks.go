package health

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MrWong99/glyphcard/internal/resilience"

	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// Pinger is implemented by dependencies with a cheap liveness check, such as
// the redis and postgres cache backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// availability is implemented by phoneme engines that can tell whether they
// are installed without running.
type availability interface {
	Available() bool
}

// Ping returns a required checker that calls p.Ping.
func Ping(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// LLM returns a required checker that passes when a language model provider
// is configured. It does not call the model.
func LLM(p llm.Provider) Checker {
	return Checker{Name: "llm", Check: func(context.Context) error {
		if p == nil {
			return errors.New("no LLM provider configured")
		}
		return nil
	}}
}

// PhonemeEngine returns an optional checker for the Tier 2 frontend. It
// transcribes a single letter for locale code and fails only when the engine
// itself cannot run.
func PhonemeEngine(p phoneme.Provider, code string) Checker {
	return Checker{Name: "phoneme", Optional: true, Check: func(ctx context.Context) error {
		if p == nil {
			return errors.New("no phoneme engine configured")
		}
		if a, ok := p.(availability); ok && !a.Available() {
			return fmt.Errorf("%s: %w", p.Name(), phoneme.ErrUnavailable)
		}
		if _, err := p.Phonemize(ctx, "a", code); errors.Is(err, phoneme.ErrUnavailable) {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
		return nil
	}}
}

// Breakers returns an optional checker that fails while any of the reported
// circuit breakers is open. Half-open breakers count as recovering.
func Breakers(sources ...func() map[string]resilience.Snapshot) Checker {
	return Checker{Name: "breakers", Optional: true, Check: func(context.Context) error {
		open := map[string]bool{}
		for _, src := range sources {
			for name, snap := range src() {
				if snap.State == resilience.StateOpen {
					open[name] = true
				}
			}
		}
		if len(open) == 0 {
			return nil
		}
		return fmt.Errorf("circuit open: %s", strings.Join(slices.Sorted(maps.Keys(open)), ", "))
	}}
}
