// Package otel wires OpenTelemetry for scrub: stdout exporters for the CLI,
// span attributes for sanitize calls, trace-aware log fields, and the chi
// middleware used by "scrub serve".
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMetricInterval is how often metrics are flushed while a process runs.
const DefaultMetricInterval = 30 * time.Second

// Settings controls telemetry export.
type Settings struct {
	ServiceName string
	Version     string
	Enabled     bool

	// Writer receives traces and metrics. Defaults to os.Stderr so redacted
	// output on stdout never mixes with telemetry.
	Writer io.Writer

	MetricInterval time.Duration
	PrettyPrint    bool
}

func (s Settings) withDefaults() Settings {
	if s.Writer == nil {
		s.Writer = os.Stderr
	}
	if s.MetricInterval <= 0 {
		s.MetricInterval = DefaultMetricInterval
	}
	if s.ServiceName == "" {
		s.ServiceName = "scrub"
	}
	return s
}

// Setup installs global tracer and meter providers. When s.Enabled is false
// nothing is installed and the no-op globals stay in place. The returned
// shutdown func flushes both providers and must be called on exit.
func Setup(ctx context.Context, s Settings) (shutdown func(context.Context) error, err error) {
	if !s.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	s = s.withDefaults()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(s.ServiceName),
			semconv.ServiceVersion(s.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	traceOpts := []stdouttrace.Option{stdouttrace.WithWriter(s.Writer)}
	metricOpts := []stdoutmetric.Option{stdoutmetric.WithWriter(s.Writer)}
	if s.PrettyPrint {
		traceOpts = append(traceOpts, stdouttrace.WithPrettyPrint())
		metricOpts = append(metricOpts, stdoutmetric.WithPrettyPrint())
	}

	traceExporter, err := stdouttrace.New(traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)

	metricExporter, err := stdoutmetric.New(metricOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating metric exporter: %w", err), tp.Shutdown(ctx))
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(s.MetricInterval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Tracer returns a tracer named after the calling package.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(pkg)
}
