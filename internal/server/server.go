// Package server exposes the sanitizer over HTTP. Every request gets a fresh
// engine with capture disabled, so removed values never leave the process.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dativo-io/scrub/internal/otel"
	"github.com/dativo-io/scrub/internal/registry"
	"github.com/dativo-io/scrub/internal/requestctx"
)

const defaultTimeout = 60 * time.Second

// Server holds the dependencies for the HTTP API.
type Server struct {
	router      *chi.Mux
	registry    *registry.Registry
	limiter     *ClientLimiter
	apiKeys     map[string]struct{}
	corsOrigins []string
	leakSweep   bool
	maxBody     int64
	startTime   time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAPIKeys requires one of keys in X-Scrub-Key or Authorization: Bearer.
// With no keys the API is unauthenticated.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) {
		for _, k := range keys {
			if k != "" {
				s.apiKeys[k] = struct{}{}
			}
		}
	}
}

// WithRateLimit caps each client at rpm requests per minute.
func WithRateLimit(rpm int) Option {
	return func(s *Server) { s.limiter = NewClientLimiter(rpm) }
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithLeakSweep toggles the leak sweep on per-request engines.
func WithLeakSweep(enabled bool) Option {
	return func(s *Server) { s.leakSweep = enabled }
}

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"]).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// NewServer builds a Server around reg.
func NewServer(reg *registry.Registry, opts ...Option) *Server {
	if reg == nil {
		reg = registry.Default()
	}
	s := &Server{
		router:    chi.NewRouter(),
		registry:  reg,
		apiKeys:   make(map[string]struct{}),
		leakSweep: true,
		maxBody:   1 << 20,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all middleware and routes).
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(requestIDContext)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.MiddlewareWithStatus())
	r.Use(CORSMiddleware(s.corsOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.limiter, len(s.apiKeys) > 0))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Get("/v1/rules", s.handleRules)
		r.Post("/v1/sanitize/text", s.handleSanitizeText)
		r.Post("/v1/sanitize/record", s.handleSanitizeRecord)
	})

	return r
}

// requestIDContext copies chi's request ID into requestctx so log lines
// written below the HTTP layer carry it.
func requestIDContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(requestctx.SetRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
