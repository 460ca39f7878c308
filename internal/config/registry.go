package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// ErrProviderNotRegistered means a config entry names a provider no factory
// was registered for.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its config entry.
type Factory[P any] func(ProviderEntry) (P, error)

type factories[P any] struct {
	kind string
	mu   sync.RWMutex
	byID map[string]Factory[P]
}

func (f *factories[P]) add(name string, fn Factory[P]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = make(map[string]Factory[P])
	}
	f.byID[name] = fn
}

func (f *factories[P]) names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.byID))
}

func (f *factories[P]) create(entry ProviderEntry) (P, error) {
	f.mu.RLock()
	fn, ok := f.byID[entry.Name]
	f.mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q (known: %s)",
			ErrProviderNotRegistered, f.kind, entry.Name, strings.Join(f.names(), ", "))
	}
	return fn(entry)
}

// Registry resolves the provider names used in the config file to
// constructors. Registering a name twice replaces the first factory.
type Registry struct {
	llm     factories[llm.Provider]
	phoneme factories[phoneme.Provider]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:     factories[llm.Provider]{kind: "llm"},
		phoneme: factories[phoneme.Provider]{kind: "phoneme"},
	}
}

// RegisterLLM registers a model backend.
func (r *Registry) RegisterLLM(name string, fn Factory[llm.Provider]) { r.llm.add(name, fn) }

// RegisterPhoneme registers a phoneme frontend.
func (r *Registry) RegisterPhoneme(name string, fn Factory[phoneme.Provider]) {
	r.phoneme.add(name, fn)
}

// LLMNames lists the registered model backends, sorted.
func (r *Registry) LLMNames() []string { return r.llm.names() }

// PhonemeNames lists the registered phoneme frontends, sorted.
func (r *Registry) PhonemeNames() []string { return r.phoneme.names() }

// CreateLLM builds the model backend named by entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	return r.llm.create(entry)
}

// CreatePhoneme builds the phoneme frontend named by entry.Name.
func (r *Registry) CreatePhoneme(entry ProviderEntry) (phoneme.Provider, error) {
	return r.phoneme.create(entry)
}

// OptString reads a string option. Missing keys and non-string values read
// as "".
func OptString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// OptInt reads an integer option. YAML integers arrive as int; whole floats
// are accepted too. Missing keys read as 0.
func OptInt(opts map[string]any, key string) (int, error) {
	switch v := opts[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("option %s: want an integer, got %v", key, opts[key])
}
