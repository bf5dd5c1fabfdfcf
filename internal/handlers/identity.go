package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// clientIP honors X-Forwarded-For set by the web gateway, falling back
// to the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceID reads the caller's device identity from the X-Device-Id
// header or the device_id cookie. It must be a UUID; anything else is
// rejected so the per-device rate limit cannot be dodged with made-up
// identifiers.
func deviceID(r *http.Request) (string, error) {
	did := r.Header.Get("X-Device-Id")
	if did == "" {
		if c, err := r.Cookie("device_id"); err == nil {
			did = c.Value
		}
	}
	if did == "" {
		return "", fmt.Errorf("missing device_id (provide X-Device-Id header or device_id cookie)")
	}
	if _, err := uuid.Parse(did); err != nil {
		return "", fmt.Errorf("invalid device_id (must be a UUID)")
	}
	return did, nil
}
