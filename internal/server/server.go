// Package server exposes the enrichment pipeline over HTTP for the card
// assembler.
//
// Routes:
//
//	GET  /v1/languages             supported language profiles
//	GET  /v1/languages/{code}      one profile, 404 when unknown
//	GET  /v1/categories?language=  the analyzer's colour legend
//	POST /v1/transliterate         one sentence, tiered transliteration
//	POST /v1/analyze               grammar analysis only
//	POST /v1/enrich                transliteration and analysis per sentence
//	GET  /metrics                  Prometheus scrape endpoint
//	GET  /healthz, /readyz         liveness and readiness
//
// Every response body is JSON. Errors use {"error": "..."}.
package server

import (
	"context"
	"net/http"

	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/health"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
)

// Request limits.
const (
	DefaultMaxSentences = 64
	DefaultMaxBodyBytes = 1 << 20
)

// Enricher is the pipeline the handlers call. [enrich.Enricher] implements it.
type Enricher interface {
	Languages() []language.Profile
	Resolve(key string) (language.Profile, bool)
	Analyzer(p language.Profile) grammar.Analyzer
	Transliterate(ctx context.Context, lang, text, supplied string) (translit.Result, language.Profile)
	Analyze(ctx context.Context, req enrich.Request) ([]grammar.SentenceAnalysis, string, error)
	Enrich(ctx context.Context, req enrich.Request) (enrich.Result, error)
}

var _ Enricher = (*enrich.Enricher)(nil)

// Server routes HTTP requests to an [Enricher].
type Server struct {
	enricher     Enricher
	health       *health.Handler
	metrics      *observe.Metrics
	metricsPath  http.Handler
	maxSentences int
	maxBodyBytes int64
}

// Option is a functional option for [New].
type Option func(*Server)

// WithHealth mounts h's /healthz and /readyz routes. Default: a handler
// without readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics sets the metrics sink used by the request middleware.
// Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler replaces the /metrics handler. Default:
// [observe.MetricsHandler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsPath = h }
}

// WithMaxSentences bounds the sentences accepted per request.
func WithMaxSentences(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSentences = n
		}
	}
}

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a [Server].
func New(e Enricher, opts ...Option) *Server {
	s := &Server{
		enricher:     e,
		maxSentences: DefaultMaxSentences,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsPath == nil {
		s.metricsPath = observe.MetricsHandler()
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/languages", s.handleLanguages)
	mux.HandleFunc("GET /v1/languages/{code}", s.handleLanguage)
	mux.HandleFunc("GET /v1/categories", s.handleCategories)
	mux.HandleFunc("POST /v1/transliterate", s.handleTransliterate)
	mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /v1/enrich", s.handleEnrich)
	mux.Handle("GET /metrics", s.metricsPath)
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}
