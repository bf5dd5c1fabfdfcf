package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Gateway is the JSON cache the pipeline components talk to. Caching is a
// performance optimization, not a correctness requirement: backend errors
// on read are treated as misses and backend errors on write are logged and
// swallowed, never propagated.
type Gateway struct {
	store Store
}

func NewGateway(store Store) *Gateway {
	return &Gateway{store: store}
}

// Get unmarshals the cached value into dest, reporting whether a usable
// entry was found.
func (g *Gateway) Get(ctx context.Context, key string, dest any) bool {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache read failed, treating as miss", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		slog.Warn("Cache entry is not valid JSON, treating as miss", "key", key, "err", err)
		return false
	}
	return true
}

// Set serializes value as JSON and writes it with the given TTL.
func (g *Gateway) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Error("Unable to serialize cache value", "key", key, "err", err)
		return
	}
	if err := g.store.SetEx(ctx, key, string(raw), ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "err", err)
	}
}
