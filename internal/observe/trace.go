package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of every glyphcard span.
const tracerName = "github.com/MrWong99/glyphcard"

// Span attribute keys shared by the pipeline stages, so one trace query can
// follow a sentence from the HTTP request through both tiers and analysis.
const (
	AttrLanguage  = attribute.Key("glyphcard.language")
	AttrTier      = attribute.Key("glyphcard.translit.tier")
	AttrEngine    = attribute.Key("glyphcard.translit.engine")
	AttrFailure   = attribute.Key("glyphcard.translit.failure")
	AttrValid     = attribute.Key("glyphcard.translit.valid")
	AttrAnalyzer  = attribute.Key("glyphcard.analyzer")
	AttrSentences = attribute.Key("glyphcard.sentences")
	AttrChunks    = attribute.Key("glyphcard.chunks")
)

// Tracer returns the glyphcard tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name under ctx. The caller ends it, usually
// through [EndSpan].
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if len(attrs) == 0 {
		return Tracer().Start(ctx, name)
	}
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks span failed when err is non-nil, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CorrelationID is the trace ID of the span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger with trace_id and span_id attached when
// ctx carries a span.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
