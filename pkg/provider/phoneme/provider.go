// Package phoneme defines the Provider interface for phonetic transcription
// engines.
//
// A phoneme provider turns orthographic text into a phonetic transcription for
// a language addressed by an engine-specific code: a rule table code for the
// built-in rule engine, a voice locale for a speech-synthesis frontend such as
// espeak-ng. Output is expected to be IPA, but callers must validate it: engines
// silently degrade to romanized readings for some scripts.
//
// Implementations must be safe for concurrent use.
package phoneme

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the engine itself cannot run, for example
// because its binary is not installed. Callers treat it as "produced nothing"
// and move on without retrying.
var ErrUnavailable = errors.New("phoneme engine unavailable")

// ErrUnsupportedLocale is returned when the engine runs but has no rules or
// voice for the requested code.
var ErrUnsupportedLocale = errors.New("phoneme engine does not support locale")

// Provider is the abstraction over any phonetic transcription engine.
type Provider interface {
	// Name returns a short, stable identifier for logs and metrics.
	Name() string

	// Phonemize returns the phonetic transcription of text for the language
	// addressed by code. It must honour ctx cancellation and deadlines.
	//
	// An empty transcription with a nil error means the engine ran but
	// recognised nothing; callers treat it the same as a failure.
	Phonemize(ctx context.Context, text, code string) (string, error)
}
