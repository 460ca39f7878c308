package resilience

import (
	"context"

	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/types"
)

// LLMFallback is an [llm.Provider] that fails over across model backends,
// for example a hosted model backed by a local llama.cpp server.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] preferring primary.
func NewLLMFallback(primary llm.Provider, name string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, name, cfg)}
}

// AddFallback appends a backend.
func (f *LLMFallback) AddFallback(name string, p llm.Provider) {
	f.group.AddFallback(name, p)
}

// Names lists the backends in the order they are tried.
func (f *LLMFallback) Names() []string { return f.group.Names() }

// Breakers reports each backend's breaker.
func (f *LLMFallback) Breakers() map[string]Snapshot { return f.group.Snapshots() }

// Complete answers req from the first backend that succeeds. Batches are
// sized against the primary's window, so MaxTokens is clamped again for each
// backend tried.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		attempt := req
		attempt.MaxTokens = p.Capabilities().ClampMaxTokens(req.MaxTokens)
		return p.Complete(ctx, attempt)
	})
}

// CountTokens counts with the first backend that can.
func (f *LLMFallback) CountTokens(messages []types.Message) (int, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// Capabilities reports the primary backend's limits. Chunk sizing uses them
// regardless of which backend ends up answering.
func (f *LLMFallback) Capabilities() types.ModelCapabilities {
	return f.group.Primary().Capabilities()
}
