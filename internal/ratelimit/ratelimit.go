// Package ratelimit gates admission into the scan pipeline with four
// independent windowed counters per request subject.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/osamaafana/BookScaner/internal/cache"
)

// Config holds the per-window request limits.
type Config struct {
	IPPerMinute   int
	IPPerDay      int
	DevicePerHour int
	DevicePerDay  int
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		IPPerMinute:   20,
		IPPerDay:      200,
		DevicePerHour: 10,
		DevicePerDay:  30,
	}
}

// Violation describes one exceeded window.
type Violation struct {
	Window string `json:"window"`
	Count  int64  `json:"count"`
	Limit  int64  `json:"limit"`
}

// DeniedError is returned when any window exceeds its limit. It carries
// every violated window plus a single retry hint.
type DeniedError struct {
	Violations        []Violation
	RetryAfterSeconds int
}

func (e *DeniedError) Error() string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.Window
	}
	return fmt.Sprintf("rate limited: %s exceeded", strings.Join(names, ", "))
}

// Limiter increments and checks the windowed counters in a shared store.
type Limiter struct {
	store cache.Store
	cfg   Config
}

func New(store cache.Store, cfg Config) *Limiter {
	return &Limiter{store: store, cfg: cfg}
}

// Allow admits or refuses a request identified by client IP and device ID.
// All four counters are incremented before any limit is checked, so even a
// rejected call counts against the windows. Each increment refreshes the
// window TTL; sustained traffic keeps postponing expiry (kept for
// compatibility with the deployed behavior).
//
// A store outage fails open: refusing every request because the counter
// backend is down would trade availability for nothing.
func (l *Limiter) Allow(ctx context.Context, ip, deviceID string) error {
	windows := []struct {
		name  string
		key   string
		ttl   time.Duration
		limit int
	}{
		{"ip_min", "rl:ip:" + ip + ":m", time.Minute, l.cfg.IPPerMinute},
		{"ip_day", "rl:ip:" + ip + ":d", 24 * time.Hour, l.cfg.IPPerDay},
		{"dev_hour", "rl:dev:" + deviceID + ":h", time.Hour, l.cfg.DevicePerHour},
		{"dev_day", "rl:dev:" + deviceID + ":d", 24 * time.Hour, l.cfg.DevicePerDay},
	}

	var violations []Violation
	for _, w := range windows {
		count, err := l.store.Incr(ctx, w.key, w.ttl)
		if err != nil {
			slog.Warn("Rate limit counter unavailable, admitting request", "window", w.name, "err", err)
			continue
		}
		if count > int64(w.limit) {
			violations = append(violations, Violation{Window: w.name, Count: count, Limit: int64(w.limit)})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &DeniedError{Violations: violations, RetryAfterSeconds: retryAfter(violations)}
}

// retryAfter picks the hint for the widest violated window: a day
// violation dominates an hour violation dominates the minute default.
func retryAfter(violations []Violation) int {
	retry := 60
	for _, v := range violations {
		if v.Window == "dev_hour" && retry < 3600 {
			retry = 3600
		}
	}
	for _, v := range violations {
		if strings.HasSuffix(v.Window, "_day") {
			retry = 86400
		}
	}
	return retry
}
