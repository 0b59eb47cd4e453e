package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the real client IP from the request. X-Forwarded-For
// wins (first hop in the chain), then X-Real-IP, then RemoteAddr with the
// port stripped. The returned string is the rate-limiting identity for the
// HTTP fallback path, so it must be stable across requests from one client.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return StripPort(r.RemoteAddr)
}

// StripPort removes the port from a host:port address, handling bracketed
// IPv6 notation. Addresses without a port are returned unchanged, so the
// raw remote address of a websocket connection is also a usable identity.
func StripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
