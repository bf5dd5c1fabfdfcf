// Package spend tracks per-provider external API cost in a rolling
// monthly ledger. The ledger is advisory: it feeds alerting and admin
// inspection, it never blocks the pipeline.
package spend

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/osamaafana/BookScaner/internal/cache"
)

// Guard accumulates USD spend per provider per UTC calendar month. The
// month key rolls over naturally; nothing is ever reset explicitly.
type Guard struct {
	store cache.Store
	now   func() time.Time
}

func NewGuard(store cache.Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

func monthKey(provider string, t time.Time) string {
	return fmt.Sprintf("spend:%s:%s", provider, t.UTC().Format("2006-01"))
}

// Record adds usd to the provider's counter for the current month. Ledger
// failures are logged, not surfaced: losing a spend sample must never fail
// a scan.
func (g *Guard) Record(ctx context.Context, provider string, usd float64) {
	if _, err := g.store.IncrByFloat(ctx, monthKey(provider, g.now()), usd); err != nil {
		slog.Warn("Spend ledger update failed", "provider", provider, "usd", usd, "err", err)
	}
}

// MonthSpend returns the accumulated spend for the current month,
// defaulting to 0 when no entry exists.
func (g *Guard) MonthSpend(ctx context.Context, provider string) float64 {
	raw, ok, err := g.store.Get(ctx, monthKey(provider, g.now()))
	if err != nil {
		slog.Warn("Spend ledger read failed", "provider", provider, "err", err)
		return 0
	}
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Spend ledger entry is not numeric", "provider", provider, "value", raw)
		return 0
	}
	return v
}
