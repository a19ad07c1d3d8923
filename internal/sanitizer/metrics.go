package sanitizer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/dativo-io/scrub/internal/sanitizer")

var (
	redactionsTotal metric.Int64Counter
	callsTotal      metric.Int64Counter
	cyclesRejected  metric.Int64Counter
)

func init() {
	var err error
	redactionsTotal, err = meter.Int64Counter("scrub.redactions.total",
		metric.WithDescription("Values redacted, by rule and category"))
	if err != nil {
		redactionsTotal, _ = meter.Int64Counter("scrub.redactions.total.fallback")
	}

	callsTotal, err = meter.Int64Counter("scrub.sanitize.calls",
		metric.WithDescription("Sanitize calls, by input kind"))
	if err != nil {
		callsTotal, _ = meter.Int64Counter("scrub.sanitize.calls.fallback")
	}

	cyclesRejected, err = meter.Int64Counter("scrub.sanitize.cycles",
		metric.WithDescription("Structured records rejected because they contain a cycle"))
	if err != nil {
		cyclesRejected, _ = meter.Int64Counter("scrub.sanitize.cycles.fallback")
	}
}

func recordCall(ctx context.Context, kind string, entries Log) {
	callsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	for _, e := range entries {
		redactionsTotal.Add(ctx, int64(e.Count), metric.WithAttributes(
			attribute.String("rule", e.Rule),
			attribute.String("category", string(e.Category)),
		))
	}
}
