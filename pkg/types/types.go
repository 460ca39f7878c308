// Package types defines the shared types used across glyphcard packages.
//
// Each package defines its own domain types; cross-cutting structures that
// would otherwise cause circular imports between providers and the pipeline
// live here.
package types

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsJSONMode indicates the model reliably follows "respond with JSON only"
	// instructions. Prompt builders may add stricter wording when it is false.
	SupportsJSONMode bool
}

// ClampMaxTokens returns requested bounded by the model's output ceiling.
// A zero ceiling means the limit is unknown and requested is returned as is.
func (c ModelCapabilities) ClampMaxTokens(requested int) int {
	if c.MaxOutputTokens > 0 && (requested <= 0 || requested > c.MaxOutputTokens) {
		return c.MaxOutputTokens
	}
	return requested
}
