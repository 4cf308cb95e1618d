package clientip

import (
	"net"
	"net/http"
	"strings"
)

// TrustForwardedFor makes RealClientIP honour the first X-Forwarded-For hop.
// Enable only when the service sits behind a proxy that overwrites the header.
var TrustForwardedFor = false

// RealClientIP returns the client IP used for rate limiting and logging.
func RealClientIP(r *http.Request) string {
	if TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
