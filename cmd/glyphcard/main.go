// Command glyphcard is the entry point for the Glyphcard enrichment server.
//
// By default it serves the HTTP API. With -mcp it speaks the Model Context
// Protocol over stdin/stdout instead, so an assistant host can launch it as
// a tool server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/glyphcard/internal/app"
	"github.com/MrWong99/glyphcard/internal/config"
	"github.com/MrWong99/glyphcard/internal/mcpserver"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/resilience"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/provider/llm/anyllm"
	"github.com/MrWong99/glyphcard/pkg/provider/llm/openai"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme/espeak"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	mcpMode := flag.Bool("mcp", false, "serve the Model Context Protocol on stdio instead of HTTP")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "glyphcard: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "glyphcard: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// Always stderr: in MCP mode stdout carries the protocol.
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("glyphcard starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"mcp", *mcpMode,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Polled, and checked immediately on SIGHUP. Only the log level applies live.
	watcher, err := config.NewWatcher(*configPath, config.OnReload(func(r config.Reload) {
		if r.Diff.LogLevelChanged {
			level.Set(slogLevel(r.Diff.NewLogLevel))
			slog.Info("log level changed", "level", r.Diff.NewLogLevel)
		}
		if len(r.Diff.RestartRequired) > 0 {
			slog.Warn("config changed; restart to apply", "sections", r.Diff.RestartRequired)
		}
	}))
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		go watcher.Run(ctx)
		go reloadOnHangup(ctx, watcher)
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.Setup(ctx, observe.TelemetryConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(tctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	if !*mcpMode {
		printStartupSummary(os.Stdout, cfg)
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	var runErr error
	if *mcpMode {
		slog.Info("mcp server ready on stdio")
		runErr = mcpserver.Run(ctx, application.Enricher(), version)
	} else {
		slog.Info("server ready; press Ctrl+C to shut down")
		runErr = application.Run(ctx)
	}
	exit := 0
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		exit = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return exit
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// Every any-llm-go backend takes an optional API key and base URL; local
	// servers such as ollama only need the URL. openai is registered below
	// with the direct client.
	for _, backend := range anyllm.Backends() {
		if backend == "openai" {
			continue
		}
		reg.RegisterLLM(backend, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(backend, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// openai talks to the API directly so organization and timeout apply.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := config.OptString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		if n, err := config.OptInt(entry.Options, "max_retries"); err != nil {
			return nil, err
		} else if n > 0 {
			opts = append(opts, openai.WithMaxRetries(n))
		}
		window, err := config.OptInt(entry.Options, "context_window")
		if err != nil {
			return nil, err
		}
		if window > 0 {
			caps := llm.CapabilitiesFor(entry.Model)
			caps.ContextWindow = window
			out, err := config.OptInt(entry.Options, "max_output_tokens")
			if err != nil {
				return nil, err
			}
			if out > 0 {
				caps.MaxOutputTokens = out
			}
			opts = append(opts, openai.WithCapabilities(caps))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── Phoneme ───────────────────────────────────────────────────────────────

	reg.RegisterPhoneme("espeak", func(entry config.ProviderEntry) (phoneme.Provider, error) {
		var opts []espeak.Option
		if bin := config.OptString(entry.Options, "binary"); bin != "" {
			opts = append(opts, espeak.WithBinary(bin))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, espeak.WithTimeout(d))
		}
		p := espeak.New(opts...)
		if !p.Available() {
			slog.Warn("espeak binary not found; phoneme tier will report unavailable")
		}
		return p, nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg and chains the
// configured fallbacks behind them.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	fb := resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Translit.Breaker.MaxFailures,
		ResetTimeout: cfg.Translit.Breaker.ResetTimeout,
		HalfOpenMax:  cfg.Translit.Breaker.HalfOpenMax,

		OnStateChange: func(name string, _, to resilience.State) {
			observe.DefaultMetrics().RecordBreakerTransition("fallback/"+name, to.String())
		},
	}}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		slog.Info("provider created", "kind", "llm", "name", entry.Name)
		ps.LLM, ps.LLMName = p, entry.Name

		if len(cfg.Providers.LLMFallbacks) > 0 {
			chain := resilience.NewLLMFallback(p, entry.Name, fb)
			for _, fe := range cfg.Providers.LLMFallbacks {
				fp, err := reg.CreateLLM(fe)
				if err != nil {
					return nil, fmt.Errorf("create llm fallback %q: %w", fe.Name, err)
				}
				chain.AddFallback(fe.Name, fp)
				slog.Info("provider created", "kind", "llm", "name", fe.Name, "fallback", true)
			}
			ps.LLM = chain
		}
	}

	if entry := cfg.Providers.Phoneme; entry.Name != "" {
		p, err := reg.CreatePhoneme(entry)
		if err != nil {
			return nil, fmt.Errorf("create phoneme provider %q: %w", entry.Name, err)
		}
		slog.Info("provider created", "kind", "phoneme", "name", entry.Name)
		ps.Phoneme = p

		if len(cfg.Providers.PhonemeFallbacks) > 0 {
			chain := resilience.NewPhonemeFallback(p, fb)
			for _, fe := range cfg.Providers.PhonemeFallbacks {
				fp, err := reg.CreatePhoneme(fe)
				if err != nil {
					return nil, fmt.Errorf("create phoneme fallback %q: %w", fe.Name, err)
				}
				chain.AddFallback(fp)
				slog.Info("provider created", "kind", "phoneme", "name", fe.Name, "fallback", true)
			}
			ps.Phoneme = chain
		}
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║        Glyphcard startup summary      ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "LLM", providerLabel(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model))
	printRow(w, "LLM fallbacks", fmt.Sprint(len(cfg.Providers.LLMFallbacks)))
	printRow(w, "Phoneme", providerLabel(cfg.Providers.Phoneme.Name, ""))
	backend := string(cfg.Cache.Backend)
	if backend == "" {
		backend = string(config.CacheMemory)
	}
	printRow(w, "Cache", backend)
	table := cfg.Languages.File
	if table == "" {
		table = "(built-in)"
	}
	printRow(w, "Languages", table)
	if cfg.Translit.ModelFallback {
		printRow(w, "Model IPA", "enabled")
	}
	if cfg.Server.ListenAddr != "" {
		printRow(w, "Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func providerLabel(name, model string) string {
	switch {
	case name == "":
		return "(not configured)"
	case model != "":
		return name + " / " + model
	default:
		return name
	}
}

func printRow(w io.Writer, label, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Fprintf(w, "║  %-14s  : %-19s ║\n", label, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if !w.Check() {
				slog.Info("SIGHUP: configuration unchanged")
			}
		}
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optDuration parses a duration string such as "5s" from provider options.
func optDuration(opts map[string]any, key string) (time.Duration, error) {
	s := config.OptString(opts, key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return d, nil
}
