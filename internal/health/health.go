// Package health serves liveness and readiness checks.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Service is the name reported by the JSON health endpoint.
const Service = "whereami-web"

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Status reports readiness. The zero value is not ready.
type Status struct {
	ready atomic.Bool
}

// SetReady marks the service ready (or not) to serve calculations.
func (s *Status) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports the current readiness.
func (s *Status) Ready() bool {
	return s.ready.Load()
}

// Readyz returns 200 "ready\n" once SetReady(true) has been called and 503
// while starting up or draining.
func (s *Status) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !s.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}

// JSON serves the legacy {"status":"healthy","service":...} document.
func (s *Status) JSON(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if !s.Ready() {
		status, code = "starting", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status, "service": Service})
}
