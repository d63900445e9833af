package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// fakeSource composes at a fixed instant so messages are deterministic.
type fakeSource struct {
	cat      *catalog.Catalog
	composer *compose.Composer
	fail     bool
}

func newFakeSource() *fakeSource {
	c := catalog.Default()
	return &fakeSource{cat: c, composer: compose.New(c)}
}

func (f *fakeSource) Catalog() *catalog.Catalog { return f.cat }

func (f *fakeSource) Now(lat, lon float64) (compose.ComposedState, error) {
	if f.fail {
		return compose.ComposedState{}, errors.New("boom")
	}
	e, err := event.New(time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC), lat, lon)
	if err != nil {
		return compose.ComposedState{}, err
	}
	return f.composer.Compose(e)
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		Interval:           time.Second,
		KeepaliveInterval:  30 * time.Second,
	}
}

// sseMessages returns the decoded data lines of an SSE body.
func sseMessages(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// TestSSEMessageFormat verifies headers, the metadata-first ordering and
// the SSE wire format: "data: {json}\n\n".
func TestSSEMessageFormat(t *testing.T) {
	handler := NewHandler(newFakeSource(), testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/velocity?lat=40.7128&lon=-74.006&interval=1", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	ctx, cancel := context.WithTimeout(req.Context(), 1500*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.HandleVelocity(w, req)

	resp := w.Result()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	body := w.Body.String()
	msgs := sseMessages(t, body)
	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want metadata and at least one velocity", len(msgs))
	}

	meta := msgs[0]
	if meta["type"] != "metadata" {
		t.Fatalf("first message type = %v, want metadata", meta["type"])
	}
	if meta["catalog_size"].(float64) != float64(catalog.Default().Len()) {
		t.Errorf("catalog_size = %v", meta["catalog_size"])
	}
	if frames := meta["frames"].([]any); frames[0] != catalog.CMBFrame {
		t.Errorf("frames[0] = %v, want %s", frames[0], catalog.CMBFrame)
	}
	if meta["interval_seconds"].(float64) != 1 {
		t.Errorf("interval_seconds = %v", meta["interval_seconds"])
	}

	vel := msgs[1]
	if vel["type"] != "velocity" {
		t.Fatalf("second message type = %v, want velocity", vel["type"])
	}
	state := vel["state"].(map[string]any)
	if state["latitude"].(float64) != 40.7128 {
		t.Errorf("state latitude = %v", state["latitude"])
	}
	if speed := state["total_speed_km_s"].(float64); speed < 340 || speed > 400 {
		t.Errorf("total speed = %v km/s, outside the annual envelope", speed)
	}
	if comps := state["velocity_components"].([]any); len(comps) != catalog.Default().Len()-1 {
		t.Errorf("components = %d", len(comps))
	}

	// Lines should be "data: ...", "retry: ..." or ":" (keepalive).
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "retry: ") && line != ":" {
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
}

// TestKeepalive verifies comment lines are sent between ticks.
func TestKeepalive(t *testing.T) {
	handler := NewHandler(newFakeSource(), Config{
		MaxConcurrentPerIP: 1,
		Interval:           time.Minute,
		KeepaliveInterval:  100 * time.Millisecond,
	}, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/velocity?lat=0&lon=0", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 350*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	handler.HandleVelocity(w, req.WithContext(ctx))

	if !strings.Contains(w.Body.String(), ":\n\n") {
		t.Error("no keepalive comment sent")
	}
}

// TestSourceFailureClosesStream verifies a composition error ends the stream.
func TestSourceFailureClosesStream(t *testing.T) {
	src := newFakeSource()
	src.fail = true
	handler := NewHandler(src, testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/velocity?lat=0&lon=0", nil)
	req.RemoteAddr = "10.0.0.9:1"
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.HandleVelocity(w, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after a composition failure")
	}
	if n := handler.limiter.count("10.0.0.9"); n != 0 {
		t.Errorf("slot not released: count = %d", n)
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	// Acquire up to the limit.
	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	// 4th should fail.
	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}

	// Different IP should still work.
	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	// Release one and try again.
	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}
	if a := limiter.active(); a != 4 {
		t.Errorf("active = %d, want 4", a)
	}

	// Releasing an unknown IP must not drive the total negative.
	limiter.release("10.9.9.9")
	if a := limiter.active(); a != 4 {
		t.Errorf("active after stray release = %d, want 4", a)
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	handler := NewHandler(newFakeSource(), Config{
		MaxConcurrentPerIP: 1,
		Interval:           time.Second,
		KeepaliveInterval:  30 * time.Second,
	}, testLogger())

	// Hold the first connection open.
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/velocity?lat=1&lon=2", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleVelocity(w, req)
	}()

	<-ready

	// Second connection from same IP should get 429.
	req := httptest.NewRequest("GET", "/api/v1/stream/velocity?lat=1&lon=2", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleVelocity(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
}

// TestInvalidQueryParams verifies error responses for bad coordinates and intervals.
func TestInvalidQueryParams(t *testing.T) {
	handler := NewHandler(newFakeSource(), testConfig(), testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "?lon=0"},
		{"missing lon", "?lat=0"},
		{"lat out of range", "?lat=91&lon=0"},
		{"lon out of range", "?lat=0&lon=-181"},
		{"lat non-numeric", "?lat=north&lon=0"},
		{"lat NaN", "?lat=NaN&lon=0"},
		{"lon NaN", "?lat=0&lon=nan"},
		{"lat infinite", "?lat=Inf&lon=0"},
		{"lon negative infinite", "?lat=0&lon=-Inf"},
		{"interval zero", "?lat=0&lon=0&interval=0"},
		{"interval too large", "?lat=0&lon=0&interval=61"},
		{"interval non-numeric", "?lat=0&lon=0&interval=fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/velocity"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleVelocity(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var body map[string]any
			json.NewDecoder(w.Body).Decode(&body)
			if body["code"] != "INVALID_INPUT" {
				t.Errorf("code = %v, want INVALID_INPUT", body["code"])
			}
			if n := handler.limiter.count("127.0.0.1"); n != 0 {
				t.Errorf("rejected request holds %d stream slots", n)
			}
		})
	}
}
