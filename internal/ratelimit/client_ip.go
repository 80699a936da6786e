package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the caller's IP for use as a rate-limit key.
//
// When trustProxy is true, X-Real-IP is preferred, then the first entry of
// X-Forwarded-For. Header values are validated with net.ParseIP so that
// arbitrary strings cannot be injected into limiter keys. When trustProxy is
// false only RemoteAddr is consulted, the safe default for direct exposure.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
