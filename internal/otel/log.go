package otel

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/dativo-io/scrub/internal/requestctx"
)

// TraceContextFrom returns trace_id and span_id from the span in ctx, if any.
func TraceContextFrom(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", ""
	}
	return span.SpanContext().TraceID().String(), span.SpanContext().SpanID().String()
}

// LogTraceFields returns a zerolog Func hook that adds request_id, trace_id
// and span_id to the event when they are present in ctx. Use with .Func():
//
//	log.Debug().Str("engine_id", id).Func(otel.LogTraceFields(ctx)).Msg("...")
//
// Fields are omitted when empty so logs stay clean when OTel is disabled.
func LogTraceFields(ctx context.Context) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		if id := requestctx.RequestID(ctx); id != "" {
			e.Str("request_id", id)
		}
		traceID, spanID := TraceContextFrom(ctx)
		if traceID != "" {
			e.Str("trace_id", traceID)
		}
		if spanID != "" {
			e.Str("span_id", spanID)
		}
	}
}
