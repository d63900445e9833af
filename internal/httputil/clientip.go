// Package httputil holds the request helpers shared by the api, auth and
// stream packages: client address extraction, the JSON response envelope and
// per-client rate limiting.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP address from the request.
// When trustProxy is true, the leftmost X-Forwarded-For entry and then
// X-Real-IP are used if they parse as IP addresses; otherwise the host part
// of RemoteAddr is returned. Only enable trustProxy behind a trusted proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := parseIP(first); ip != "" {
				return ip
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return hostOnly(r.RemoteAddr)
}

func parseIP(s string) string {
	s = hostOnly(strings.TrimSpace(s))
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return ""
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
