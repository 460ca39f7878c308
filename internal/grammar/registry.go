package grammar

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/glyphcard/internal/language"
)

// GenericKey is the registry key of the generic analyzer.
const GenericKey = "generic"

var builtinTables = []func() Table{
	europeanTable,
	slavicTable,
	chineseTable,
	japaneseTable,
	koreanTable,
	semiticTable,
	indicTable,
	genericTable,
}

var builtins = sync.OnceValue(func() map[string]Analyzer {
	m := make(map[string]Analyzer, len(builtinTables))
	for _, table := range builtinTables {
		a, err := NewRuleAnalyzer(table())
		if err != nil {
			panic(err)
		}
		m[a.Key()] = a
	}
	return m
})

// Generic returns the analyzer used for languages without a family table.
func Generic() Analyzer {
	return builtins()[GenericKey]
}

// Registry maps analyzer keys to analyzers. The map is fixed at construction;
// a Registry is safe for concurrent use.
type Registry struct {
	analyzers map[string]Analyzer
}

// NewRegistry returns a registry holding every built-in analyzer plus extra.
// An extra analyzer replaces a built-in one with the same key.
func NewRegistry(extra ...Analyzer) *Registry {
	r := &Registry{analyzers: make(map[string]Analyzer, len(builtinTables)+len(extra))}
	for k, a := range builtins() {
		r.analyzers[k] = a
	}
	for _, a := range extra {
		r.analyzers[strings.ToLower(a.Key())] = a
	}
	return r
}

// Get returns the analyzer registered under key. Keys match
// case-insensitively. Unknown keys fail with [language.ErrUnsupportedLanguage].
func (r *Registry) Get(key string) (Analyzer, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if a, ok := r.analyzers[k]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("grammar: analyzer %q: %w", key, language.ErrUnsupportedLanguage)
}

// For returns the analyzer for p, or the generic analyzer when p names none
// or an unknown one. The analyzer renders in p's script direction.
func (r *Registry) For(p language.Profile) Analyzer {
	return WithDirection(r.lookup(p), p.Direction)
}

func (r *Registry) lookup(p language.Profile) Analyzer {
	if a, err := r.Get(p.AnalyzerKey); err == nil {
		return a
	}
	if a, ok := r.analyzers[GenericKey]; ok {
		return a
	}
	return Generic()
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.analyzers))
	for k := range r.analyzers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
