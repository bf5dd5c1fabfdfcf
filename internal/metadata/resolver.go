// Package metadata resolves raw spine text into canonical bibliographic
// records via external book catalogs, with a fingerprint-keyed cache in
// front of every network call.
package metadata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/fingerprint"
	"github.com/osamaafana/BookScaner/internal/models"
)

// Catalog is an external book catalog. Both lookups return (nil, nil)
// when the catalog has no matching record.
type Catalog interface {
	Name() string
	ByISBN(ctx context.Context, isbn string) (*models.CanonicalBook, error)
	Search(ctx context.Context, title, author string) (*models.CanonicalBook, error)
}

// Resolver looks up book metadata: cache first, then the primary
// catalog, then the fallback. Catalogs are optional; a nil catalog is
// skipped.
type Resolver struct {
	cache    *cache.Gateway
	primary  Catalog
	fallback Catalog
	ttl      time.Duration
}

func NewResolver(gateway *cache.Gateway, primary, fallback Catalog, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = cache.DefaultMetaTTL
	}
	return &Resolver{cache: gateway, primary: primary, fallback: fallback, ttl: ttl}
}

// Resolve returns the canonical record for a title/author/ISBN guess,
// or nil when no catalog knows the book. Catalog errors are logged and
// treated as misses; resolution is best-effort by design.
func (r *Resolver) Resolve(ctx context.Context, partial models.PartialBook) *models.CanonicalBook {
	title := strings.TrimSpace(partial.Title)
	author := strings.TrimSpace(partial.Author)
	isbn := fingerprint.NormalizeISBN(partial.ISBN)

	key := cache.MetaKey(fingerprint.Make(title, author, isbn))
	var cached models.CanonicalBook
	if r.cache.Get(ctx, key, &cached) {
		return &cached
	}

	result := r.fromPrimary(ctx, title, author, isbn)
	if result == nil {
		result = r.fromFallback(ctx, title, author, isbn)
	}
	if result != nil {
		r.cache.Set(ctx, key, result, r.ttl)
	}
	return result
}

// fromPrimary tries an exact ISBN lookup first and falls back to a
// fuzzy search within the same catalog.
func (r *Resolver) fromPrimary(ctx context.Context, title, author, isbn string) *models.CanonicalBook {
	if r.primary == nil {
		return nil
	}
	if isbn != "" {
		if book := r.lookup(ctx, r.primary, isbn, "", ""); book != nil {
			return book
		}
	}
	return r.lookup(ctx, r.primary, "", title, author)
}

// fromFallback queries by ISBN when one exists, otherwise by search.
func (r *Resolver) fromFallback(ctx context.Context, title, author, isbn string) *models.CanonicalBook {
	if r.fallback == nil {
		return nil
	}
	if isbn != "" {
		return r.lookup(ctx, r.fallback, isbn, "", "")
	}
	return r.lookup(ctx, r.fallback, "", title, author)
}

func (r *Resolver) lookup(ctx context.Context, c Catalog, isbn, title, author string) *models.CanonicalBook {
	var (
		book *models.CanonicalBook
		err  error
	)
	if isbn != "" {
		book, err = c.ByISBN(ctx, isbn)
	} else {
		book, err = c.Search(ctx, title, author)
	}
	if err != nil {
		slog.Warn("Catalog lookup failed", "catalog", c.Name(), "isbn", isbn, "title", title, "author", author, "err", err)
		return nil
	}
	return book
}

// ResolveMany resolves spine guesses one at a time, dropping the ones
// no catalog could identify.
func (r *Resolver) ResolveMany(ctx context.Context, partials []models.PartialBook) []models.CanonicalBook {
	out := []models.CanonicalBook{}
	for _, p := range partials {
		if b := r.Resolve(ctx, p); b != nil {
			out = append(out, *b)
		}
	}
	return out
}
