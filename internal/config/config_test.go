package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/glyphcard/internal/config"
	"github.com/MrWong99/glyphcard/internal/translit"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	llmmock "github.com/MrWong99/glyphcard/pkg/provider/llm/mock"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
	phonememock "github.com/MrWong99/glyphcard/pkg/provider/phoneme/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info
  shutdown_timeout: 20s

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  llm_fallbacks:
    - name: anthropic
      api_key: ant-test
      model: claude-haiku
  phoneme:
    name: espeak
    options:
      binary: espeak-ng

languages:
  file: ""

translit:
  tier2_timeout: 3s
  tier3_timeout: 20s
  tier3_policy: strict
  family_policies:
    sino-tibetan: lenient
  model_fallback: true
  concurrency: 4
  breaker:
    max_failures: 3
    reset_timeout: 1m
    half_open_max: 1

analysis:
  chunk_size: 6
  concurrency: 2
  call_timeout: 60s
  max_tokens: 3000
  temperature: 0.1

cache:
  backend: redis
  ttl: 72h
  redis:
    addr: localhost:6379
    db: 2

telemetry:
  service_name: glyphcard-test
`

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

// ── loading ──────────────────────────────────────────────────────────────────

func TestLoadFromReader_Sample(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, sampleYAML)

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.ShutdownTimeout != 20*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm.model = %q", cfg.Providers.LLM.Model)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "anthropic" {
		t.Errorf("llm_fallbacks = %+v", cfg.Providers.LLMFallbacks)
	}
	if got := config.OptString(cfg.Providers.Phoneme.Options, "binary"); got != "espeak-ng" {
		t.Errorf("phoneme binary = %q", got)
	}
	if cfg.Translit.Tier2Timeout != 3*time.Second {
		t.Errorf("tier2_timeout = %v", cfg.Translit.Tier2Timeout)
	}
	if cfg.Translit.Tier3Policy != translit.PolicyStrict {
		t.Errorf("tier3_policy = %q", cfg.Translit.Tier3Policy)
	}
	if cfg.Translit.FamilyPolicies["sino-tibetan"] != translit.PolicyLenient {
		t.Errorf("family_policies = %v", cfg.Translit.FamilyPolicies)
	}
	if cfg.Translit.Breaker.ResetTimeout != time.Minute {
		t.Errorf("breaker.reset_timeout = %v", cfg.Translit.Breaker.ResetTimeout)
	}
	if cfg.Analysis.ChunkSize != 6 || cfg.Analysis.CallTimeout != time.Minute {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.Temperature == nil || *cfg.Analysis.Temperature != 0.1 {
		t.Errorf("temperature = %v", cfg.Analysis.Temperature)
	}
	if cfg.Cache.Backend != config.CacheRedis || cfg.Cache.Redis.DB != 2 || cfg.Cache.TTL != 72*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Telemetry.ServiceName != "glyphcard-test" {
		t.Errorf("service_name = %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "")
	if cfg.Cache.Backend != "" || cfg.Providers.LLM.Name != "" {
		t.Errorf("empty document produced %+v", cfg)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":8080\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("configs/example.yaml: %v", err)
	}
	if cfg.Cache.Backend != config.CacheMemory {
		t.Errorf("cache.backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Translit.FamilyPolicies["sinitic"] != translit.PolicyStrict {
		t.Errorf("family_policies = %v", cfg.Translit.FamilyPolicies)
	}
}

// ── validation ───────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "bad log level", yaml: "server:\n  log_level: loud\n", wantErr: "server.log_level"},
		{name: "negative shutdown", yaml: "server:\n  shutdown_timeout: -1s\n", wantErr: "server.shutdown_timeout"},
		{name: "half tls", yaml: "server:\n  tls:\n    cert_file: a.pem\n", wantErr: "server.tls"},
		{name: "fallback without name", yaml: "providers:\n  llm:\n    name: openai\n  llm_fallbacks:\n    - model: x\n", wantErr: "llm_fallbacks[0].name"},
		{name: "fallback without primary", yaml: "providers:\n  llm_fallbacks:\n    - name: groq\n", wantErr: "requires providers.llm"},
		{name: "phoneme fallback without primary", yaml: "providers:\n  phoneme_fallbacks:\n    - name: espeak\n", wantErr: "requires providers.phoneme"},
		{name: "bad policy", yaml: "translit:\n  tier3_policy: maybe\n", wantErr: "translit.tier3_policy"},
		{name: "bad family policy", yaml: "translit:\n  family_policies:\n    slavic: maybe\n", wantErr: "family_policies[slavic]"},
		{name: "model fallback without llm", yaml: "translit:\n  model_fallback: true\n", wantErr: "translit.model_fallback"},
		{name: "negative breaker", yaml: "translit:\n  breaker:\n    max_failures: -1\n", wantErr: "translit.breaker"},
		{name: "chunk too large", yaml: "analysis:\n  chunk_size: 9\n", wantErr: "analysis.chunk_size"},
		{name: "temperature", yaml: "analysis:\n  temperature: 3\n", wantErr: "analysis.temperature"},
		{name: "bad backend", yaml: "cache:\n  backend: disk\n", wantErr: "cache.backend"},
		{name: "redis without addr", yaml: "cache:\n  backend: redis\n", wantErr: "cache.redis.addr"},
		{name: "postgres without dsn", yaml: "cache:\n  backend: postgres\n", wantErr: "cache.postgres.dsn"},
		{name: "sample ratio", yaml: "telemetry:\n  sample_ratio: 1.5\n", wantErr: "telemetry.sample_ratio"},
		{name: "valid otlp", yaml: "telemetry:\n  otlp_endpoint: collector:4317\n  sample_ratio: 0.5\n"},
		{name: "valid memory", yaml: "cache:\n  backend: memory\n  capacity: 100\n"},
		{name: "valid none", yaml: "cache:\n  backend: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:   config.ServerConfig{LogLevel: "loud"},
		Analysis: config.AnalysisConfig{ChunkSize: 20},
		Cache:    config.CacheConfig{Backend: "disk"},
	}
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "analysis.chunk_size", "cache.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error is missing %q: %v", want, err)
		}
	}
}

func TestEnums_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = false", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error(`LogLevel("trace").IsValid() = true`)
	}
	for _, b := range []config.CacheBackend{config.CacheMemory, config.CacheRedis, config.CachePostgres, config.CacheNone} {
		if !b.IsValid() {
			t.Errorf("CacheBackend(%q).IsValid() = false", b)
		}
	}
	if config.CacheBackend("").IsValid() {
		t.Error(`CacheBackend("").IsValid() = true`)
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	wantLLM := &llmmock.Provider{}
	reg.RegisterLLM("test", func(e config.ProviderEntry) (llm.Provider, error) {
		if e.Model != "m1" {
			t.Errorf("factory got model %q, want m1", e.Model)
		}
		return wantLLM, nil
	})
	reg.RegisterPhoneme("test", func(config.ProviderEntry) (phoneme.Provider, error) {
		return &phonememock.Provider{ProviderName: "test"}, nil
	})

	got, err := reg.CreateLLM(config.ProviderEntry{Name: "test", Model: "m1"})
	if err != nil || got != wantLLM {
		t.Errorf("CreateLLM = %v, %v", got, err)
	}
	ph, err := reg.CreatePhoneme(config.ProviderEntry{Name: "test"})
	if err != nil || ph.Name() != "test" {
		t.Errorf("CreatePhoneme = %v, %v", ph, err)
	}
	if _, err := ph.Phonemize(context.Background(), "a", "en"); err != nil {
		t.Errorf("Phonemize: %v", err)
	}

	reg.RegisterLLM("anthropic", func(config.ProviderEntry) (llm.Provider, error) { return wantLLM, nil })
	if got := reg.LLMNames(); strings.Join(got, ",") != "anthropic,test" {
		t.Errorf("LLMNames() = %v, want [anthropic test]", got)
	}
	if got := reg.PhonemeNames(); strings.Join(got, ",") != "test" {
		t.Errorf("PhonemeNames() = %v, want [test]", got)
	}

	_, err = reg.CreateLLM(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM(nope) err = %v, want ErrProviderNotRegistered", err)
	} else if !strings.Contains(err.Error(), "known: anthropic, test") {
		t.Errorf("CreateLLM(nope) err = %q, want the registered names listed", err)
	}
	if _, err := reg.CreatePhoneme(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreatePhoneme(nope) err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestOptString(t *testing.T) {
	t.Parallel()
	opts := map[string]any{"binary": "espeak-ng", "rate": 3}
	if got := config.OptString(opts, "binary"); got != "espeak-ng" {
		t.Errorf("binary = %q", got)
	}
	if got := config.OptString(opts, "rate"); got != "" {
		t.Errorf("non-string = %q, want empty", got)
	}
	if got := config.OptString(nil, "binary"); got != "" {
		t.Errorf("nil map = %q, want empty", got)
	}
}

func TestOptInt(t *testing.T) {
	t.Parallel()
	opts := map[string]any{"context_window": 32768, "big": int64(1 << 20), "float": 4096.0, "half": 1.5, "name": "x"}
	tests := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{key: "context_window", want: 32768},
		{key: "big", want: 1 << 20},
		{key: "float", want: 4096},
		{key: "missing"},
		{key: "half", wantErr: true},
		{key: "name", wantErr: true},
	}
	for _, tt := range tests {
		got, err := config.OptInt(opts, tt.key)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("OptInt(%q) = %d, %v; want %d, wantErr %v", tt.key, got, err, tt.want, tt.wantErr)
		}
	}
}
