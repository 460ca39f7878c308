// Package mock provides a test double for the phoneme.Provider interface.
//
// Results can be fixed per call (Result/Err) or keyed by code (ByCode), and
// every call is recorded for later assertions.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// PhonemizeCall records a single invocation of Phonemize.
type PhonemizeCall struct {
	Text string
	Code string
}

// Provider is a mock implementation of phoneme.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ByCode, when it holds an entry for the requested code, takes precedence
	// over Result.
	ByCode map[string]string

	// Result is returned by Phonemize when ByCode has no entry.
	Result string

	// Err, if non-nil, is returned as the error from Phonemize.
	Err error

	// Delay, if non-nil, runs before Phonemize answers. A non-nil error from it
	// is returned instead of the configured result; tests use it to simulate
	// slow engines and timeouts.
	Delay func(ctx context.Context) error

	// Calls records every invocation of Phonemize in order.
	Calls []PhonemizeCall
}

// Name implements phoneme.Provider.
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Phonemize records the call and returns the configured result.
func (p *Provider) Phonemize(ctx context.Context, text, code string) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, PhonemizeCall{Text: text, Code: code})
	delay := p.Delay
	res, ok := p.ByCode[code]
	if !ok {
		res = p.Result
	}
	err := p.Err
	p.mu.Unlock()

	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return "", derr
		}
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

// CallCount returns the number of Phonemize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Ensure Provider implements phoneme.Provider at compile time.
var _ phoneme.Provider = (*Provider)(nil)
