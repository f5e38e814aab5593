package observability

import (
	"net"
	"net/http"
	"strings"
)

const (
	headerDeviceID  = "X-Device-Id"
	headerRequestID = "X-Request-Id"
	headerForwarded = "X-Forwarded-For"
)

// DeviceIDFromRequest returns the caller-reported device id, if any.
func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerDeviceID)
}

// RequestIDFromRequest returns the propagated request id, if any.
func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}

// IPFromRequest resolves the client address, preferring the first entry of
// X-Forwarded-For when a proxy sits in front.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get(headerForwarded); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
