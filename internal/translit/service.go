package translit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/glyphcard/internal/cache"
	"github.com/MrWong99/glyphcard/internal/ipa"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/resilience"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// Default timeouts for engine calls.
const (
	DefaultEngineTimeout   = 5 * time.Second
	DefaultFallbackTimeout = 30 * time.Second
)

// Service is the tiered transliteration service. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	rules   phoneme.Provider
	phoneme phoneme.Provider

	rulesBreaker   *resilience.CircuitBreaker
	phonemeBreaker *resilience.CircuitBreaker

	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *observe.Metrics

	policy         Policy
	familyPolicies map[string]Policy

	engineTimeout   time.Duration
	fallbackTimeout time.Duration
	breakerCfg      resilience.CircuitBreakerConfig

	// reported holds engine names whose unavailability was already logged.
	reported sync.Map
}

// Option is a functional option for [New].
type Option func(*Service)

// WithCache stores accepted Tier 1 and Tier 2 outputs in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPolicy sets the default Tier 3 policy. Default: [PolicyLenient].
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithFamilyPolicy overrides the Tier 3 policy for one language family.
func WithFamilyPolicy(family string, p Policy) Option {
	return func(s *Service) { s.familyPolicies[family] = p }
}

// WithEngineTimeout bounds each Tier 1 and Tier 2 engine call.
func WithEngineTimeout(d time.Duration) Option {
	return func(s *Service) { s.engineTimeout = d }
}

// WithFallbackTimeout bounds the Tier 3 source call.
func WithFallbackTimeout(d time.Duration) Option {
	return func(s *Service) { s.fallbackTimeout = d }
}

// WithBreaker tunes the per-engine circuit breakers. Name and IsFailure
// are filled in by the service.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(s *Service) { s.breakerCfg = cfg }
}

// New creates a [Service]. Either engine may be nil, in which case its tier
// is skipped.
func New(rules, ph phoneme.Provider, opts ...Option) *Service {
	s := &Service{
		rules:           rules,
		phoneme:         ph,
		cache:           cache.Nop{},
		policy:          PolicyLenient,
		familyPolicies:  make(map[string]Policy),
		engineTimeout:   DefaultEngineTimeout,
		fallbackTimeout: DefaultFallbackTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	s.rulesBreaker = s.newBreaker(rules)
	s.phonemeBreaker = s.newBreaker(ph)
	return s
}

func (s *Service) newBreaker(p phoneme.Provider) *resilience.CircuitBreaker {
	if p == nil {
		return nil
	}
	cfg := s.breakerCfg
	cfg.Name = "translit/" + p.Name()
	cfg.IsFailure = resilience.IsPhonemeFailure
	notify := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		s.metrics.RecordBreakerTransition(name, to.String())
		if notify != nil {
			notify(name, from, to)
		}
	}
	return resilience.NewCircuitBreaker(cfg)
}

// Breakers reports the engine circuit breakers by name.
func (s *Service) Breakers() map[string]resilience.Snapshot {
	out := make(map[string]resilience.Snapshot, 2)
	for _, b := range []*resilience.CircuitBreaker{s.rulesBreaker, s.phonemeBreaker} {
		if b != nil {
			out[b.Name()] = b.Snapshot()
		}
	}
	return out
}

// PolicyFor returns the Tier 3 policy applied to p.
func (s *Service) PolicyFor(p language.Profile) Policy {
	if pol, ok := s.familyPolicies[p.Family]; ok {
		return pol
	}
	return s.policy
}

// Transliterate returns the best transliteration of text for p. fallback
// may be nil. The result is never empty for non-empty text.
func (s *Service) Transliterate(ctx context.Context, text string, p language.Profile, fallback FallbackSource) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Tier: TierNone, Reason: ipa.ReasonEmpty}
	}

	ctx, span := observe.StartSpan(ctx, "translit.transliterate", observe.AttrLanguage.String(p.Code))
	defer span.End()

	var res Result
	defer func() {
		span.SetAttributes(
			observe.AttrTier.String(res.Tier.String()),
			observe.AttrValid.Bool(res.Valid),
		)
		s.metrics.RecordTranslitResult(ctx, res.Tier.String(), p.Code, res.Valid)
	}()

	// Tier 1.
	if s.rules != nil && !p.SkipsRuleEngine() {
		a := s.runEngine(ctx, TierRules, s.rules, s.rulesBreaker, p.Tier1Code, text, p)
		res.Attempts = append(res.Attempts, a)
		if a.Accepted {
			res.Text, res.Tier, res.Valid = strings.TrimSpace(a.Output), TierRules, true
			return res
		}
	}

	// Tier 2.
	if s.phoneme != nil && p.Tier2Code != "" {
		a := s.runEngine(ctx, TierPhoneme, s.phoneme, s.phonemeBreaker, p.Tier2Code, text, p)
		res.Attempts = append(res.Attempts, a)
		if a.Accepted {
			res.Text, res.Tier, res.Valid = strings.TrimSpace(a.Output), TierPhoneme, true
			return res
		}
	}

	// Tier 3.
	if fallback != nil {
		a, valid := s.runFallback(ctx, fallback, text, p)
		res.Attempts = append(res.Attempts, a)
		if a.Accepted {
			res.Text, res.Tier, res.Valid = strings.TrimSpace(a.Output), TierFallback, valid
			res.Reason = a.Validation
			return res
		}
	}

	// Tier 4.
	observe.Logger(ctx).Info("translit: no tier produced a usable transliteration",
		"lang", p.Code, "attempts", len(res.Attempts))
	res.Text, res.Tier, res.Valid = Placeholder(p), TierPlaceholder, false
	return res
}

// runEngine performs one Tier 1 or Tier 2 attempt, consulting the cache first.
func (s *Service) runEngine(
	ctx context.Context,
	tier Tier,
	eng phoneme.Provider,
	breaker *resilience.CircuitBreaker,
	code, text string,
	p language.Profile,
) Attempt {
	a := Attempt{Tier: tier, Engine: eng.Name()}
	key := cacheKey(tier, p.Code, text)

	if v, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		a.Output, a.Cached, a.Accepted = string(v), true, true
		return a
	} else if err != nil {
		observe.Logger(ctx).Debug("translit: cache read failed", "err", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	start := time.Now()
	err := breaker.Execute(func() error {
		out, err := eng.Phonemize(callCtx, text, code)
		a.Output = out
		return err
	})
	a.Duration = time.Since(start)
	s.metrics.RecordTranslitAttempt(ctx, tier.String(), a.Engine, a.Duration.Seconds())

	if err != nil {
		a.Err = err
		a.Failure = s.classify(ctx, callCtx, err, a.Engine)
		s.recordFailure(ctx, a)
		return a
	}

	ok, reason := ipa.Validate(a.Output, p)
	a.Validation = reason
	if !ok {
		a.Failure = FailureInvalid
		s.recordFailure(ctx, a)
		return a
	}

	a.Accepted = true
	if err := s.cache.Set(ctx, key, []byte(strings.TrimSpace(a.Output)), s.cacheTTL); err != nil {
		observe.Logger(ctx).Debug("translit: cache write failed", "err", err)
	}
	return a
}

// runFallback performs the Tier 3 attempt. valid reports whether the
// accepted output passed validation.
func (s *Service) runFallback(ctx context.Context, src FallbackSource, text string, p language.Profile) (Attempt, bool) {
	a := Attempt{Tier: TierFallback, Engine: "fallback"}

	callCtx, cancel := context.WithTimeout(ctx, s.fallbackTimeout)
	defer cancel()

	start := time.Now()
	out, err := src.Fallback(callCtx, text, p)
	a.Duration = time.Since(start)
	a.Output = strings.TrimSpace(out)
	s.metrics.RecordTranslitAttempt(ctx, TierFallback.String(), a.Engine, a.Duration.Seconds())

	if err != nil {
		a.Err = err
		a.Failure = s.classify(ctx, callCtx, err, a.Engine)
		s.recordFailure(ctx, a)
		return a, false
	}

	ok, reason := ipa.Validate(a.Output, p)
	a.Validation = reason
	if ok {
		a.Accepted = true
		return a, true
	}

	if a.Output != "" && s.PolicyFor(p) == PolicyLenient && !ipa.HasHardContamination(a.Output, p) {
		observe.Logger(ctx).Warn("translit: accepting fallback text that failed validation",
			"lang", p.Code, "reason", string(reason))
		a.Accepted = true
		return a, false
	}

	a.Failure = FailureRejected
	s.recordFailure(ctx, a)
	return a, false
}

// classify maps an engine error to a failure label. Unavailability is
// logged once per engine.
func (s *Service) classify(ctx, callCtx context.Context, err error, engine string) string {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return FailureCircuitOpen
	case errors.Is(err, phoneme.ErrUnavailable):
		if _, seen := s.reported.LoadOrStore(engine, struct{}{}); !seen {
			observe.Logger(ctx).Warn("translit: engine unavailable, tier will be skipped",
				"engine", engine, "err", err)
		}
		return FailureUnavailable
	case errors.Is(err, phoneme.ErrUnsupportedLocale):
		return FailureUnsupported
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return FailureTimeout
	default:
		return FailureError
	}
}

func (s *Service) recordFailure(ctx context.Context, a Attempt) {
	s.metrics.RecordTierFailure(ctx, a.Tier.String(), a.Failure)
	trace.SpanFromContext(ctx).AddEvent("tier failed", trace.WithAttributes(
		observe.AttrTier.String(a.Tier.String()),
		observe.AttrEngine.String(a.Engine),
		observe.AttrFailure.String(a.Failure),
	))
	l := observe.Logger(ctx)
	switch a.Failure {
	case FailureUnavailable, FailureUnsupported, FailureCircuitOpen:
		l.Debug("translit: tier skipped", "tier", a.Tier.String(), "engine", a.Engine, "failure", a.Failure)
	default:
		l.LogAttrs(ctx, slog.LevelInfo, "translit: tier produced nothing usable",
			slog.String("tier", a.Tier.String()),
			slog.String("engine", a.Engine),
			slog.String("failure", a.Failure),
			slog.String("validation", string(a.Validation)),
			slog.Any("err", a.Err),
		)
	}
}
