// Package cache provides the shared key-value layer used by the scan
// pipeline: a JSON cache gateway plus the low-level counters backing the
// spend ledger and the rate limiter.
package cache

import (
	"context"
	"time"
)

// Store is the low-level key-value contract. The production implementation
// is Redis; an in-process implementation backs tests and keyless dev setups.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetEx writes a value with a TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// IncrByFloat atomically adds delta to a float counter.
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)
	// Incr atomically increments an integer counter and refreshes its TTL
	// in the same round trip, returning the new count.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
