package llm

import (
	"strings"

	"github.com/MrWong99/glyphcard/pkg/types"
)

// DefaultCapabilities is assumed for models missing from the known table.
var DefaultCapabilities = types.ModelCapabilities{
	ContextWindow:    128_000,
	MaxOutputTokens:  4_096,
	SupportsJSONMode: true,
}

// modelFamily matches model names by lower-cased prefix, or by substring
// when anywhere is set. The first matching row wins.
type modelFamily struct {
	match    []string
	anywhere bool
	caps     types.ModelCapabilities
}

var knownModels = []modelFamily{
	{match: []string{"gpt-4o"}, caps: caps(128_000, 16_384, true)},
	{match: []string{"gpt-4.1"}, caps: caps(1_047_576, 32_768, true)},
	{match: []string{"gpt-4-turbo"}, caps: caps(128_000, 4_096, true)},
	{match: []string{"gpt-4"}, caps: caps(8_192, 4_096, false)},
	{match: []string{"gpt-3.5-turbo"}, caps: caps(16_385, 4_096, true)},
	{match: []string{"o1-mini"}, caps: caps(128_000, 65_536, false)},
	{match: []string{"o1", "o3"}, caps: caps(200_000, 100_000, true)},

	{match: []string{"claude-3-opus"}, anywhere: true, caps: caps(200_000, 4_096, true)},
	{match: []string{"claude"}, caps: caps(200_000, 8_192, true)},

	{match: []string{"gemini-1.5-pro"}, anywhere: true, caps: caps(2_097_152, 8_192, true)},
	{match: []string{"gemini-2.0-flash", "gemini-1.5-flash"}, anywhere: true, caps: caps(1_048_576, 8_192, true)},
	{match: []string{"gemini"}, caps: caps(128_000, 8_192, true)},

	// Small local models follow JSON-only instructions unreliably.
	{match: []string{"llama", "mistral", "qwen", "phi"}, caps: caps(32_768, 4_096, false)},
}

func caps(window, output int, json bool) types.ModelCapabilities {
	return types.ModelCapabilities{ContextWindow: window, MaxOutputTokens: output, SupportsJSONMode: json}
}

// CapabilitiesFor looks model up in the table of known model families,
// ignoring case. Unknown models get [DefaultCapabilities].
func CapabilitiesFor(model string) types.ModelCapabilities {
	name := strings.ToLower(model)
	for _, f := range knownModels {
		for _, m := range f.match {
			if (f.anywhere && strings.Contains(name, m)) || strings.HasPrefix(name, m) {
				return f.caps
			}
		}
	}
	return DefaultCapabilities
}
