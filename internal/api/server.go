package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/NixVir/whereami-web/internal/auth"
	"github.com/NixVir/whereami-web/internal/engine"
	"github.com/NixVir/whereami-web/internal/health"
	"github.com/NixVir/whereami-web/internal/httputil"
	"github.com/NixVir/whereami-web/internal/metrics"
	"github.com/NixVir/whereami-web/internal/stream"
)

// Config holds server settings and collaborators.
type Config struct {
	Addr           string
	Logger         *slog.Logger
	Auth           auth.Config
	Engine         *engine.Engine
	Stream         *stream.Handler
	Health         *health.Status
	TrustProxy     bool
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.Health == nil {
		cfg.Health = &health.Status{}
	}
	logger := cfg.Logger.With("component", "api")

	h := &handlers{
		engine:  cfg.Engine,
		logger:  logger,
		timeout: cfg.RequestTimeout,
	}

	mux := http.NewServeMux()

	// Health checks and metrics.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", cfg.Health.Readyz)
	mux.HandleFunc("GET /api/health", cfg.Health.JSON)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /{$}", h.index)

	// Calculation API. The legacy unversioned paths are aliases.
	for _, prefix := range []string{"/api/v1", "/api"} {
		mux.HandleFunc("POST "+prefix+"/calculate", h.calculate)
		mux.HandleFunc("POST "+prefix+"/geocode", h.geocode)
		mux.HandleFunc("GET "+prefix+"/forces", h.forces)
	}
	mux.HandleFunc("GET /api/v1/frames", h.frames)
	if cfg.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/velocity", cfg.Stream.HandleVelocity)
	}

	// Build middleware chain: metrics -> request ID -> logging -> rate limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		limiter := httputil.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), burst)
		handler = limiter.Middleware(cfg.TrustProxy, unlimitedPath)(handler)
	}
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = requestIDMiddleware(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// healthPath reports whether path is a health/readiness check that should not log at INFO.
func healthPath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// unlimitedPath exempts health checks, metrics and the long-lived stream (which has
// its own concurrent limit) from the request rate limit.
func unlimitedPath(path string) bool {
	return healthPath(path) || path == "/metrics" || path == "/api/v1/stream/velocity"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

type requestIDKey struct{}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware accepts a well-formed X-Request-ID from the client or
// generates one, stores it in the context and echoes it in the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if healthPath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
