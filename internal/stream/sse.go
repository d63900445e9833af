// Package stream implements Server-Sent Events (SSE) streaming of the live
// velocity state at a location. Clients connect via
// GET /api/v1/stream/velocity?lat=..&lon=..&interval=.. and receive the
// composed state for "now" on every tick.
//
// SSE message format:
//
//	data: {"type":"velocity","state":{"datetime":"2025-10-15T12:00:00Z",...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","catalog_size":9,"frames":["cmb_frame",...],"interval_seconds":1}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval without data.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/httputil"
	"github.com/NixVir/whereami-web/internal/metrics"
	"github.com/NixVir/whereami-web/internal/report"
)

// MaxIntervalSeconds bounds the client-requested tick interval.
const MaxIntervalSeconds = 60

// Source composes the live state. *engine.Engine satisfies it.
type Source interface {
	Catalog() *catalog.Catalog
	Now(lat, lon float64) (compose.ComposedState, error)
}

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	Interval           time.Duration // Default tick interval (default: 1s).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Use proxy headers for the per-IP limit.
}

// Handler manages SSE streaming connections.
type Handler struct {
	source  Source
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source Source, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		source:  source,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

func parseCoord(r *http.Request, name string, limit float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < -limit || f > limit {
		return 0, fmt.Errorf("invalid %s parameter, must be %v to %v", name, -limit, limit)
	}
	return f, nil
}

// HandleVelocity serves the SSE velocity stream.
// GET /api/v1/stream/velocity?lat=40.7128&lon=-74.006&interval=1
func (h *Handler) HandleVelocity(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoord(r, "lat", 90)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, err.Error())
		return
	}
	lon, err := parseCoord(r, "lon", 180)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, err.Error())
		return
	}

	interval := h.config.Interval
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxIntervalSeconds {
			httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput,
				fmt.Sprintf("invalid interval parameter, must be 1-%d", MaxIntervalSeconds))
			return
		}
		interval = time.Duration(n) * time.Second
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, httputil.CodeRateLimited, "too many concurrent streams")
		return
	}

	metrics.StreamOpened()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"latitude", lat,
		"longitude", lon,
		"interval", interval,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.StreamClosed()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "streaming not supported")
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The server's WriteTimeout would cut long-lived streams.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	if err := c.sendJSON(h.metadata(interval)); err != nil {
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}
	if !h.sendState(c, lat, lon) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !h.sendState(c, lat, lon) {
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// sendState composes and sends one velocity message. It returns false when
// the stream should close.
func (h *Handler) sendState(c *client, lat, lon float64) bool {
	state, err := h.source.Now(lat, lon)
	if err != nil {
		h.logger.Error("stream composition failed", "remote_ip", c.ip, "error", err)
		return false
	}
	if err := c.sendJSON(velocityMessage{Type: "velocity", State: report.NewState(state)}); err != nil {
		h.logger.Warn("stream send error", "remote_ip", c.ip, "error", err)
		return false
	}
	return true
}

func (h *Handler) metadata(interval time.Duration) metadataMessage {
	frames := h.source.Catalog().Frames()
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Name
	}
	return metadataMessage{
		Type:            "metadata",
		CatalogSize:     len(frames),
		Frames:          names,
		IntervalSeconds: int(interval / time.Second),
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type            string   `json:"type"`
	CatalogSize     int      `json:"catalog_size"`
	Frames          []string `json:"frames"`
	IntervalSeconds int      `json:"interval_seconds"`
}

type velocityMessage struct {
	Type  string       `json:"type"`
	State report.Event `json:"state"`
}
