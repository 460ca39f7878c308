// Package mock is a scriptable [llm.Provider] for tests.
//
// A Provider answers every request with CompleteResponse and CompleteErr, or
// with CompleteFunc when set, and remembers each request:
//
//	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: `{"ipa":"ˈhalo"}`}}
//	...
//	req := p.Calls()[0].Req
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/types"
)

// Call is one recorded Complete invocation.
type Call struct {
	Req llm.CompletionRequest

	// HasDeadline reports whether the caller bounded the call.
	HasDeadline bool
}

// Provider is a fake model. The zero value answers (nil, nil).
type Provider struct {
	// CompleteFunc computes each answer and overrides CompleteResponse and
	// CompleteErr. It runs unlocked so it may block on ctx.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	CompleteResponse *llm.CompletionResponse
	CompleteErr      error

	TokenCount     int
	CountTokensErr error

	ModelCapabilities types.ModelCapabilities

	mu    sync.Mutex
	calls []Call
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	_, bounded := ctx.Deadline()
	p.mu.Lock()
	p.calls = append(p.calls, Call{Req: req, HasDeadline: bounded})
	fn, resp, err := p.CompleteFunc, p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// CountTokens returns TokenCount and CountTokensErr.
func (p *Provider) CountTokens([]types.Message) (int, error) {
	return p.TokenCount, p.CountTokensErr
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities { return p.ModelCapabilities }

// Calls returns a copy of the recorded requests in arrival order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}
