package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whereami_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_calculations_total",
			Help: "Total number of position calculations by outcome.",
		},
		[]string{"outcome"},
	)

	geocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_geocode_requests_total",
			Help: "Total number of upstream geocoder lookups by outcome.",
		},
		[]string{"outcome"},
	)

	geocodeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whereami_geocode_duration_seconds",
			Help:    "Geocoder lookup duration in seconds, retries included.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	geocodeCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whereami_geocode_cache_hits_total",
			Help: "Total number of geocode lookups answered from the cache.",
		},
	)

	geocodeCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whereami_geocode_cache_misses_total",
			Help: "Total number of geocode lookups that went upstream.",
		},
	)

	geocodeCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whereami_geocode_cache_evictions_total",
			Help: "Total number of geocode cache entries evicted.",
		},
	)

	geocodeCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "whereami_geocode_cache_entries",
			Help: "Current number of cached geocode results.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "whereami_streams_active",
			Help: "Number of open velocity streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whereami_stream_messages_total",
			Help: "Total number of velocity stream messages sent.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		calculationsTotal,
		geocodeRequestsTotal,
		geocodeDurationSeconds,
		geocodeCacheHits,
		geocodeCacheMisses,
		geocodeCacheEvictions,
		geocodeCacheEntries,
		streamsActive,
		streamMessagesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Calculation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// ObserveCalculation counts one calculation.
func ObserveCalculation(outcome string) {
	calculationsTotal.WithLabelValues(outcome).Inc()
}

// Geocode implements geocode.Observer.
type Geocode struct{}

// ObserveGeocode records one geocoder lookup.
func (Geocode) ObserveGeocode(outcome string, d time.Duration) {
	geocodeRequestsTotal.WithLabelValues(outcome).Inc()
	geocodeDurationSeconds.Observe(d.Seconds())
}

// IncCacheHits increments the geocode cache hit counter.
func IncCacheHits() { geocodeCacheHits.Inc() }

// IncCacheMisses increments the geocode cache miss counter.
func IncCacheMisses() { geocodeCacheMisses.Inc() }

// AddCacheEvictions adds n to the geocode cache eviction counter.
func AddCacheEvictions(n int) { geocodeCacheEvictions.Add(float64(n)) }

// SetCacheEntries sets the geocode cache entry gauge.
func SetCacheEntries(n int) { geocodeCacheEntries.Set(float64(n)) }

// StreamOpened and StreamClosed track open velocity streams.
func StreamOpened() { streamsActive.Inc() }

func StreamClosed() { streamsActive.Dec() }

// StreamMessage counts one sent stream message.
func StreamMessage() { streamMessagesTotal.Inc() }

// knownRoutes is the fixed set of path labels. Anything else is "other" so
// scanners cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/calculate":       true,
	"/api/v1/geocode":         true,
	"/api/v1/frames":          true,
	"/api/v1/forces":          true,
	"/api/v1/stream/velocity": true,
	"/api/calculate":          true,
	"/api/geocode":            true,
	"/api/forces":             true,
	"/api/health":             true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE handlers keep streaming behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
