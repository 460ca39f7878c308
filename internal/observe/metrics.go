// Package observe holds the metrics, tracing, logging and HTTP middleware
// shared by every glyphcard component.
//
// Instruments are created from any [metric.MeterProvider]; [Setup] installs
// one backed by a Prometheus reader, which [MetricsHandler] serves. Code that
// has no injected [Metrics] uses [DefaultMetrics]. Tests build their own with
// [NewMetrics] over a manual reader.
package observe

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/glyphcard"

// Metrics is the set of instruments glyphcard records to.
type Metrics struct {
	// Transliteration.
	TranslitDuration     metric.Float64Histogram // tier, engine
	TranslitResults      metric.Int64Counter     // tier, lang, valid
	TranslitTierFailures metric.Int64Counter     // tier, reason

	// Grammar analysis.
	AnalysisChunks    metric.Int64Counter       // status: ok, failed, discarded
	AnalysisFallbacks metric.Int64Counter       // analyzer, scope: chunk, sentence
	ActiveJobs        metric.Int64UpDownCounter // analysis jobs in flight

	// Providers.
	LLMDuration      metric.Float64Histogram // provider
	ProviderRequests metric.Int64Counter     // provider, kind, status
	ProviderErrors   metric.Int64Counter     // provider, kind

	CacheLookups        metric.Int64Counter     // cache, result: hit, miss, error
	BreakerTransitions  metric.Int64Counter     // breaker, to
	HTTPRequestDuration metric.Float64Histogram // method, route, status
}

// latencyBuckets spans rule engines answering in microseconds up to model
// calls taking a minute.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var errs []error
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...))
		errs = append(errs, err)
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	m := &Metrics{
		TranslitDuration:     seconds("glyphcard.translit.duration", "Latency of one transliteration tier attempt."),
		TranslitResults:      counter("glyphcard.translit.results", "Transliterations by winning tier, language and validity."),
		TranslitTierFailures: counter("glyphcard.translit.tier_failures", "Tier attempts that produced nothing usable."),

		AnalysisChunks:    counter("glyphcard.analysis.chunks", "Grammar analysis chunks by outcome."),
		AnalysisFallbacks: counter("glyphcard.analysis.fallbacks", "Sentences that received the fallback analysis."),

		LLMDuration:      seconds("glyphcard.llm.duration", "Latency of one model call."),
		ProviderRequests: counter("glyphcard.provider.requests", "Provider calls by provider, kind and status."),
		ProviderErrors:   counter("glyphcard.provider.errors", "Failed provider calls by provider and kind."),

		CacheLookups:        counter("glyphcard.cache.lookups", "Cache reads by backend and result."),
		BreakerTransitions:  counter("glyphcard.breaker.transitions", "Circuit breaker state changes by breaker and target state."),
		HTTPRequestDuration: seconds("glyphcard.http.request.duration", "HTTP request latency by method, route and status."),
	}
	var err error
	m.ActiveJobs, err = meter.Int64UpDownCounter("glyphcard.active_jobs",
		metric.WithDescription("Analysis jobs currently in flight."))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide [Metrics] built on the global meter
// provider the first time it is called.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		if defaultMetrics, err = NewMetrics(otel.GetMeterProvider()); err != nil {
			panic("observe: default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func attrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(kv...)
}

// RecordTranslitAttempt records how long one tier took.
func (m *Metrics) RecordTranslitAttempt(ctx context.Context, tier, engine string, seconds float64) {
	m.TranslitDuration.Record(ctx, seconds, attrs(attribute.String("tier", tier), attribute.String("engine", engine)))
}

// RecordTranslitResult counts a finished transliteration.
func (m *Metrics) RecordTranslitResult(ctx context.Context, tier, lang string, valid bool) {
	m.TranslitResults.Add(ctx, 1, attrs(attribute.String("tier", tier), attribute.String("lang", lang), attribute.Bool("valid", valid)))
}

// RecordTierFailure counts a tier that produced nothing usable.
func (m *Metrics) RecordTierFailure(ctx context.Context, tier, reason string) {
	m.TranslitTierFailures.Add(ctx, 1, attrs(attribute.String("tier", tier), attribute.String("reason", reason)))
}

// RecordChunk counts one analysis chunk outcome.
func (m *Metrics) RecordChunk(ctx context.Context, status string) {
	m.AnalysisChunks.Add(ctx, 1, attrs(attribute.String("status", status)))
}

// RecordFallbacks counts n sentences given the fallback analysis. n <= 0 is
// not recorded.
func (m *Metrics) RecordFallbacks(ctx context.Context, analyzer, scope string, n int) {
	if n > 0 {
		m.AnalysisFallbacks.Add(ctx, int64(n), attrs(attribute.String("analyzer", analyzer), attribute.String("scope", scope)))
	}
}

// RecordProviderRequest counts a provider call.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, attrs(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status)))
}

// RecordProviderError counts a failed provider call.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, attrs(attribute.String("provider", provider), attribute.String("kind", kind)))
}

// RecordLLMCall records the latency and outcome of one model call.
func (m *Metrics) RecordLLMCall(ctx context.Context, provider string, seconds float64, err error) {
	m.LLMDuration.Record(ctx, seconds, attrs(attribute.String("provider", provider)))
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, "llm")
	}
	m.RecordProviderRequest(ctx, provider, "llm", status)
}

// RecordCacheLookup counts a cache read.
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache, result string) {
	m.CacheLookups.Add(ctx, 1, attrs(attribute.String("cache", cache), attribute.String("result", result)))
}

// RecordBreakerTransition counts a breaker entering state to. Breakers change
// state outside any request, hence no context.
func (m *Metrics) RecordBreakerTransition(breaker, to string) {
	m.BreakerTransitions.Add(context.Background(), 1,
		attrs(attribute.String("breaker", breaker), attribute.String("to", to)))
}
