package otel

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dativo-io/scrub/internal/otel"

var (
	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
)

func init() {
	meter := otel.Meter(tracerName)
	var err error
	httpRequests, err = meter.Int64Counter("scrub.http.requests",
		metric.WithDescription("HTTP requests by route and status class"))
	if err != nil {
		httpRequests, _ = meter.Int64Counter("scrub.http.requests.fallback")
	}
	httpDuration, err = meter.Float64Histogram("scrub.http.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"))
	if err != nil {
		httpDuration, _ = meter.Float64Histogram("scrub.http.duration.fallback")
	}
}

// MiddlewareWithStatus returns a chi middleware that starts a span per
// request so sanitize spans appear as its children, and records span status
// from the response code (Error for 5xx, Ok otherwise).
func MiddlewareWithStatus() func(next http.Handler) http.Handler {
	tr := Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tr.Start(r.Context(), "http.request",
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				))
			r = r.WithContext(ctx)
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			// chi fills the route pattern while routing, so read it afterwards.
			route := routePattern(r)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", wrapped.status),
			)
			if wrapped.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(wrapped.status))
			}
			span.End()

			attrs := metric.WithAttributes(
				attribute.String("http.route", route),
				attribute.String("http.status_class", statusClass(wrapped.status)),
			)
			httpRequests.Add(ctx, 1, attrs)
			httpDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// routePattern returns the chi route pattern (e.g. "/v1/sanitize/text") when
// available, otherwise the request path.
func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil && ctx.RoutePattern() != "" {
		return ctx.RoutePattern()
	}
	return r.URL.Path
}
