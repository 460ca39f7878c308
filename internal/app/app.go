// Package app wires all glyphcard subsystems into a running service.
//
// The App struct owns the full lifecycle: New builds the language table,
// cache, transliteration tiers, batch coordinator and enricher; Run serves
// the HTTP API until its context ends; Shutdown drains the server and closes
// every backend in order.
//
// For testing, inject doubles via functional options (WithCache,
// WithLanguages, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/glyphcard/internal/batch"
	"github.com/MrWong99/glyphcard/internal/cache"
	"github.com/MrWong99/glyphcard/internal/cache/pgcache"
	rediscache "github.com/MrWong99/glyphcard/internal/cache/redis"
	"github.com/MrWong99/glyphcard/internal/config"
	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/health"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/resilience"
	"github.com/MrWong99/glyphcard/internal/server"
	"github.com/MrWong99/glyphcard/internal/translit"
	"github.com/MrWong99/glyphcard/internal/translit/llmipa"
	"github.com/MrWong99/glyphcard/internal/translit/rules"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// DefaultShutdownTimeout applies when server.shutdown_timeout is unset.
const DefaultShutdownTimeout = 15 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	// LLM is the primary model, already wrapped with its fallbacks.
	LLM llm.Provider

	// LLMName labels LLM in metrics.
	LLMName string

	// Phoneme is the Tier 2 frontend, already wrapped with its fallbacks.
	Phoneme phoneme.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	languages *language.Registry
	cache     cache.Cache
	pinger    health.Pinger
	metrics   *observe.Metrics
	enricher  *enrich.Enricher
	health    *health.Handler
	srv       *http.Server

	// background is cancelled on Shutdown; it scopes cache purgers.
	background context.Context
	cancelBg   context.CancelFunc

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCache injects a cache instead of creating one from config.
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithLanguages injects a language registry instead of loading one.
func WithLanguages(r *language.Registry) Option {
	return func(a *App) { a.languages = r }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: language table loading,
// cache connection, rule-engine construction and enricher assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.background, a.cancelBg = context.WithCancel(context.WithoutCancel(ctx))

	// ── 1. Language table ────────────────────────────────────────────────
	if err := a.initLanguages(); err != nil {
		a.cancelBg()
		return nil, fmt.Errorf("app: init languages: %w", err)
	}

	// ── 2. Cache ─────────────────────────────────────────────────────────
	if err := a.initCache(ctx); err != nil {
		a.cancelBg()
		return nil, fmt.Errorf("app: init cache: %w", err)
	}

	// ── 3. Transliteration tiers ─────────────────────────────────────────
	svc, err := a.buildTranslit()
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init translit: %w", err)
	}

	// ── 4. Grammar analysis ──────────────────────────────────────────────
	coord := a.buildCoordinator()

	// ── 5. Enricher ──────────────────────────────────────────────────────
	var eopts []enrich.Option
	if cfg.Translit.ModelFallback && providers.LLM != nil {
		eopts = append(eopts, enrich.WithFallbackSource(llmipa.New(providers.LLM,
			llmipa.WithCache(a.cache, cfg.Cache.TTL),
			llmipa.WithMetrics(a.metrics),
			llmipa.WithProviderName(a.llmName()),
		)))
	}
	if cfg.Translit.Concurrency > 0 {
		eopts = append(eopts, enrich.WithTranslitConcurrency(cfg.Translit.Concurrency))
	}
	a.enricher = enrich.New(a.languages, svc, grammar.NewRegistry(), coord, eopts...)

	// ── 6. Health ────────────────────────────────────────────────────────
	a.health = health.New(a.checkers(svc)...)

	slog.Info("app initialised",
		"languages", a.languages.Len(),
		"cache", a.cacheBackend(),
		"llm", a.llmName(),
		"phoneme", phonemeName(providers.Phoneme),
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initLanguages() error {
	if a.languages != nil {
		return nil
	}
	var err error
	if path := a.cfg.Languages.File; path != "" {
		a.languages, err = language.LoadFile(path)
		if err == nil {
			slog.Info("loaded language table", "path", path, "count", a.languages.Len())
		}
		return err
	}
	a.languages, err = language.Default()
	return err
}

func (a *App) cacheBackend() config.CacheBackend {
	if b := a.cfg.Cache.Backend; b != "" {
		return b
	}
	return config.CacheMemory
}

// initCache connects the configured backend or keeps an injected one. The
// result is instrumented so every lookup is counted.
func (a *App) initCache(ctx context.Context) error {
	if a.cache != nil {
		return nil
	}
	backend := a.cacheBackend()
	c := a.cfg.Cache

	var raw cache.Cache
	switch backend {
	case config.CacheNone:
		a.cache = cache.Nop{}
		return nil

	case config.CacheMemory:
		raw = cache.NewMemory(c.Capacity, c.TTL)

	case config.CacheRedis:
		rc, err := rediscache.New(ctx, rediscache.Options{
			Addr:       c.Redis.Addr,
			Password:   c.Redis.Password,
			DB:         c.Redis.DB,
			Prefix:     c.Redis.Prefix,
			DefaultTTL: c.TTL,
		})
		if err != nil {
			return err
		}
		raw, a.pinger = rc, rc

	case config.CachePostgres:
		pc, err := pgcache.New(ctx, c.Postgres.DSN, c.TTL)
		if err != nil {
			return err
		}
		interval := c.Postgres.PurgeInterval
		if interval <= 0 {
			interval = time.Hour
		}
		go pc.RunPurger(a.background, interval)
		raw, a.pinger = pc, pc

	default:
		return fmt.Errorf("unknown cache backend %q", backend)
	}

	a.closers = append(a.closers, raw.Close)
	a.cache = cache.Instrument(raw, string(backend), a.metrics)
	return nil
}

// buildTranslit assembles the tiers: the built-in rule engine, the configured
// phoneme frontend and the breakers around both.
func (a *App) buildTranslit() (*translit.Service, error) {
	t := a.cfg.Translit

	var ropts []rules.Option
	if path := t.EnglishLexicon; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open english lexicon: %w", err)
		}
		defer f.Close()
		ropts = append(ropts, rules.WithEnglishLexicon(f))
	}
	engine, err := rules.New(ropts...)
	if err != nil {
		return nil, err
	}

	opts := []translit.Option{
		translit.WithCache(a.cache, a.cfg.Cache.TTL),
		translit.WithMetrics(a.metrics),
		translit.WithBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  t.Breaker.MaxFailures,
			ResetTimeout: t.Breaker.ResetTimeout,
			HalfOpenMax:  t.Breaker.HalfOpenMax,
		}),
	}
	if t.Tier3Policy != "" {
		opts = append(opts, translit.WithPolicy(t.Tier3Policy))
	}
	for family, p := range t.FamilyPolicies {
		opts = append(opts, translit.WithFamilyPolicy(family, p))
	}
	if t.Tier2Timeout > 0 {
		opts = append(opts, translit.WithEngineTimeout(t.Tier2Timeout))
	}
	if t.Tier3Timeout > 0 {
		opts = append(opts, translit.WithFallbackTimeout(t.Tier3Timeout))
	}

	var ph phoneme.Provider
	if a.providers.Phoneme != nil {
		ph = a.providers.Phoneme
	} else {
		slog.Warn("no phoneme frontend configured; languages without rules go straight to Tier 3")
	}
	return translit.New(engine, ph, opts...), nil
}

func (a *App) buildCoordinator() *batch.Coordinator {
	an := a.cfg.Analysis
	opts := []batch.Option{
		batch.WithCache(a.cache, a.cfg.Cache.TTL),
		batch.WithMetrics(a.metrics),
		batch.WithProviderName(a.llmName()),
	}
	if an.ChunkSize > 0 {
		opts = append(opts, batch.WithChunkSize(an.ChunkSize))
	}
	if an.Concurrency > 0 {
		opts = append(opts, batch.WithConcurrency(an.Concurrency))
	}
	if an.CallTimeout > 0 {
		opts = append(opts, batch.WithCallTimeout(an.CallTimeout))
	}
	if an.MaxTokens > 0 {
		opts = append(opts, batch.WithMaxTokens(an.MaxTokens))
	}
	if an.Temperature != nil {
		opts = append(opts, batch.WithTemperature(*an.Temperature))
	}
	return batch.New(a.providers.LLM, opts...)
}

// checkers builds the readiness checks. The phoneme frontend and open
// breakers degrade readiness; a missing model or an unreachable shared cache
// fails it.
func (a *App) checkers(svc *translit.Service) []health.Checker {
	checks := []health.Checker{health.LLM(a.providers.LLM)}

	breakers := []func() map[string]resilience.Snapshot{svc.Breakers}
	if fb, ok := a.providers.LLM.(*resilience.LLMFallback); ok {
		breakers = append(breakers, fb.Breakers)
	}
	if fb, ok := a.providers.Phoneme.(*resilience.PhonemeFallback); ok {
		breakers = append(breakers, fb.Breakers)
	}
	checks = append(checks, health.Breakers(breakers...))

	if a.providers.Phoneme != nil {
		code := "en-us"
		if p, err := a.languages.Profile("en"); err == nil && p.Tier2Code != "" {
			code = p.Tier2Code
		}
		checks = append(checks, health.PhonemeEngine(a.providers.Phoneme, code))
	}
	if a.pinger != nil {
		checks = append(checks, health.Ping("cache", a.pinger))
	}
	return checks
}

func (a *App) llmName() string {
	if a.providers.LLMName != "" {
		return a.providers.LLMName
	}
	return "llm"
}

func phonemeName(p phoneme.Provider) string {
	if p == nil {
		return "(none)"
	}
	return p.Name()
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Enricher returns the assembled pipeline. The MCP mode serves it directly.
func (a *App) Enricher() *enrich.Enricher { return a.enricher }

// Handler returns the instrumented HTTP handler.
func (a *App) Handler() http.Handler {
	return server.New(a.enricher,
		server.WithHealth(a.health),
		server.WithMetrics(a.metrics),
	).Handler()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API on cfg.Server.ListenAddr and blocks until ctx is
// cancelled or the listener fails. On cancellation it returns ctx.Err(); call
// [App.Shutdown] afterwards to drain in-flight requests.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is [App.Run] on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.srv = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return a.background },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.Serve(ln)
		}
		errCh <- err
	}()

	slog.Info("app running", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown drains the HTTP server and closes every backend. It is safe to
// call more than once; only the first call does any work.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		if a.srv != nil {
			if e := a.srv.Shutdown(ctx); e != nil {
				err = fmt.Errorf("app: http shutdown: %w", e)
			}
		}
		err = errors.Join(err, a.closeAll())
	})
	return err
}

// ShutdownTimeout returns the configured graceful shutdown bound.
func (a *App) ShutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return DefaultShutdownTimeout
}

func (a *App) closeAll() error {
	a.cancelBg()
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
