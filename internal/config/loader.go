package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":     {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"phoneme": {"espeak"},
}

// maxChunkSize mirrors the analyzer's per-prompt sentence limit.
const maxChunkSize = 8

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// An empty document yields the zero config, which is valid.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %v must not be negative", cfg.Server.ShutdownTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("phoneme", cfg.Providers.Phoneme.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}
	for i, fb := range cfg.Providers.PhonemeFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.phoneme_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("phoneme", fb.Name)
	}
	if len(cfg.Providers.PhonemeFallbacks) > 0 && cfg.Providers.Phoneme.Name == "" {
		errs = append(errs, errors.New("providers.phoneme_fallbacks requires providers.phoneme"))
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; every sentence will get the single-span fallback analysis")
	}

	// Transliteration
	t := cfg.Translit
	if t.Tier2Timeout < 0 {
		errs = append(errs, fmt.Errorf("translit.tier2_timeout %v must not be negative", t.Tier2Timeout))
	}
	if t.Tier3Timeout < 0 {
		errs = append(errs, fmt.Errorf("translit.tier3_timeout %v must not be negative", t.Tier3Timeout))
	}
	if t.Tier3Policy != "" && !t.Tier3Policy.IsValid() {
		errs = append(errs, fmt.Errorf("translit.tier3_policy %q is invalid; valid values: lenient, strict", t.Tier3Policy))
	}
	for family, p := range t.FamilyPolicies {
		if !p.IsValid() {
			errs = append(errs, fmt.Errorf("translit.family_policies[%s] %q is invalid; valid values: lenient, strict", family, p))
		}
	}
	if t.ModelFallback && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("translit.model_fallback requires providers.llm"))
	}
	if t.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("translit.concurrency %d must not be negative", t.Concurrency))
	}
	if t.Breaker.MaxFailures < 0 || t.Breaker.HalfOpenMax < 0 || t.Breaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("translit.breaker values must not be negative"))
	}

	// Analysis
	a := cfg.Analysis
	if a.ChunkSize < 0 || a.ChunkSize > maxChunkSize {
		errs = append(errs, fmt.Errorf("analysis.chunk_size %d is out of range [1, %d]", a.ChunkSize, maxChunkSize))
	}
	if a.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("analysis.concurrency %d must not be negative", a.Concurrency))
	}
	if a.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("analysis.call_timeout %v must not be negative", a.CallTimeout))
	}
	if a.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_tokens %d must not be negative", a.MaxTokens))
	}
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		errs = append(errs, fmt.Errorf("analysis.temperature %.2f is out of range [0, 2]", *a.Temperature))
	}

	// Cache
	c := cfg.Cache
	if c.Backend != "" && !c.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("cache.backend %q is invalid; valid values: memory, redis, postgres, none", c.Backend))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity %d must not be negative", c.Capacity))
	}
	if c.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %v must not be negative", c.TTL))
	}
	if c.Backend == CacheRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr is required when backend is redis"))
	}
	if c.Backend == CachePostgres && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("cache.postgres.dsn is required when backend is postgres"))
	}

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio %.2f is out of range [0, 1]", r))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
