// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI, Anthropic,
// Gemini, or a local Ollama instance) and exposes the single request/response
// shape the enrichment pipeline needs: a prompt in, structured text out, with a
// bounded output budget.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/MrWong99/glyphcard/pkg/types"
)

// ErrEmptyResponse is returned when a backend answers without any
// completion choice.
var ErrEmptyResponse = errors.New("llm: response has no choices")

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. For the enrichment pipeline this is
	// normally a single "user" message holding the batch prompt.
	Messages []types.Message

	// SystemPrompt is an optional high-priority instruction injected before the
	// conversation. Providers without a dedicated system field prepend it as a
	// "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in the range [0.0, 2.0]. Zero
	// leaves the provider default in place.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// JSONMode asks the backend to constrain output to a JSON object when it
	// supports doing so natively. Callers must still tolerate non-JSON output.
	JSONMode bool
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// FinishReason reports why generation stopped ("stop", "length", ...).
	// A "length" finish means the output budget was exhausted and the content
	// is likely truncated.
	FinishReason string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines and
// must return promptly when ctx is cancelled or its deadline passes.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the number of tokens the given messages would
	// consume. The result need not be exact but should not undercount.
	CountTokens(messages []types.Message) (int, error)

	// Capabilities returns static metadata describing the underlying model.
	Capabilities() types.ModelCapabilities
}

// EstimateTokens is the character-based approximation shared by backends that
// have no tokenisation endpoint: roughly four characters per token plus a
// small per-message overhead for role and formatting.
func EstimateTokens(messages []types.Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
		total += 4
	}
	return total
}

// JSONInstruction is added to the system prompt of JSONMode requests for
// backends that cannot constrain their output natively.
const JSONInstruction = "Respond with a single JSON object and nothing else: no prose, no markdown fences."

// SystemPromptWithJSON returns system with [JSONInstruction] appended.
func SystemPromptWithJSON(system string) string {
	return strings.TrimSpace(system + "\n\n" + JSONInstruction)
}
