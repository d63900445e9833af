package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPRateLimiterPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("1.1.1.1") {
		t.Error("third request in the same instant should be limited")
	}
	if !l.Allow("2.2.2.2") {
		t.Error("a different IP has its own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("1.1.1.1") {
		t.Error("bucket should refill after one second")
	}
}

func TestIPRateLimiterEvictsIdle(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(10), 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }

	l.Allow("1.1.1.1")
	l.Allow("2.2.2.2")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	now = now.Add(11 * time.Minute)
	l.Allow("3.3.3.3")
	if l.Len() != 1 {
		t.Errorf("Len() after idle sweep = %d, want 1", l.Len())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.5), 1)
	h := l.Middleware(false, func(path string) bool { return path == "/healthz" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "9.9.9.9:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := do("/api/v1/frames"); w.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := do("/api/v1/frames")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "3" {
		t.Errorf("Retry-After = %q, want 3", w.Header().Get("Retry-After"))
	}
	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Code != CodeRateLimited {
		t.Errorf("body = %+v", body)
	}

	for i := 0; i < 5; i++ {
		if w := do("/healthz"); w.Code != http.StatusNoContent {
			t.Fatalf("skipped path limited: status %d", w.Code)
		}
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, CodeInvalidInput, "birth_date is required")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != false || body["code"] != CodeInvalidInput || body["error"] != "birth_date is required" {
		t.Errorf("body = %v", body)
	}
}
