// Package vision drives OCR extraction over a chain of providers with
// image-size adaptation, result caching and spend accounting.
package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/images"
	"github.com/osamaafana/BookScaner/internal/metrics"
	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
	"github.com/osamaafana/BookScaner/internal/spend"
)

// ErrPipelineExhausted means every configured provider failed. Callers
// must treat it differently from an empty spine list, which is a
// successful scan of a shelf with no readable books.
var ErrPipelineExhausted = errors.New("all vision providers failed")

// ProviderCached tags responses served from the scan cache, where the
// original provider is no longer known.
const ProviderCached = "cached"

// Service is the scan orchestrator. Providers are optional; a nil
// provider is skipped in the fallback chain.
type Service struct {
	cache *cache.Gateway
	spend *spend.Guard

	primary    providers.Vision
	alternate  providers.Vision
	detector   providers.Detector
	aggregator providers.Aggregator

	// Estimated USD cost per scan, keyed by provider name. Missing
	// entries record as 0 and rely on upstream console limits.
	costs map[string]float64

	maxBase64MB float64
}

type Options struct {
	Primary     providers.Vision
	Alternate   providers.Vision
	Detector    providers.Detector
	Aggregator  providers.Aggregator
	Costs       map[string]float64
	MaxBase64MB float64
}

func NewService(gateway *cache.Gateway, guard *spend.Guard, opts Options) *Service {
	if opts.MaxBase64MB <= 0 {
		opts.MaxBase64MB = images.DefaultMaxBase64MB
	}
	return &Service{
		cache:       gateway,
		spend:       guard,
		primary:     opts.Primary,
		alternate:   opts.Alternate,
		detector:    opts.Detector,
		aggregator:  opts.Aggregator,
		costs:       opts.Costs,
		maxBase64MB: opts.MaxBase64MB,
	}
}

type attempt struct {
	name string
	run  func(ctx context.Context) (*models.SpineResult, error)
}

// Scan extracts book spines from the image, trying each configured
// provider in order until one succeeds. Results are cached under the
// hash of the original bytes so re-uploads of the same photo short
// circuit regardless of how the image was adapted.
func (s *Service) Scan(ctx context.Context, image []byte, mimeType string, primaryEnabled bool) (*models.SpineResult, string, error) {
	sum := sha256.Sum256(image)
	key := cache.ScanKey(hex.EncodeToString(sum[:]), primaryEnabled)

	var cached models.SpineResult
	if s.cache.Get(ctx, key, &cached) {
		slog.Info("Serving scan result from cache")
		metrics.RecordCacheHit()
		return &cached, ProviderCached, nil
	}

	adapted := images.DownscaleIfNeeded(image, s.maxBase64MB)

	var attempts []attempt
	if primaryEnabled && s.primary != nil {
		p := s.primary
		attempts = append(attempts, attempt{p.Name(), func(ctx context.Context) (*models.SpineResult, error) {
			return p.Scan(ctx, adapted, mimeType)
		}})
	}
	if s.alternate != nil {
		p := s.alternate
		attempts = append(attempts, attempt{p.Name(), func(ctx context.Context) (*models.SpineResult, error) {
			return p.Scan(ctx, adapted, mimeType)
		}})
	}
	if s.detector != nil {
		// Full-document detection handles large payloads fine, so the
		// two-stage path always sees the original bytes.
		attempts = append(attempts, attempt{s.detector.Name(), func(ctx context.Context) (*models.SpineResult, error) {
			return s.twoStage(ctx, image)
		}})
	}
	if len(attempts) == 0 {
		return nil, "", fmt.Errorf("no vision providers configured")
	}

	var failures []error
	for _, a := range attempts {
		start := time.Now()
		result, err := a.run(ctx)
		metrics.RecordVision(a.name, time.Since(start), err)
		if err != nil {
			slog.Warn("Vision provider failed, falling back", "provider", a.name, "err", err)
			failures = append(failures, err)
			continue
		}

		slog.Info("Vision scan complete", "provider", a.name, "spines_detected", len(result.Spines))
		metrics.RecordSpines(a.name, len(result.Spines))
		s.recordSpend(ctx, a.name)
		s.cache.Set(ctx, key, result, cache.ScanTTL)
		return result, a.name, nil
	}

	return nil, "", fmt.Errorf("%w: %w", ErrPipelineExhausted, errors.Join(failures...))
}

// twoStage runs full-document OCR and hands the resulting fragments to
// the aggregation model for per-spine grouping.
func (s *Service) twoStage(ctx context.Context, image []byte) (*models.SpineResult, error) {
	fragments, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(fragments.Fragments) == 0 {
		if fragments.FullText == "" {
			// Nothing detected at all: an empty shelf is a valid scan.
			return &models.SpineResult{Spines: []models.Spine{}}, nil
		}
		return fullTextResult(fragments), nil
	}
	if s.aggregator == nil {
		return fullTextResult(fragments), nil
	}

	result, err := s.aggregator.Aggregate(ctx, fragments)
	if err != nil {
		return nil, err
	}
	s.recordSpend(ctx, s.aggregator.Name())
	return result, nil
}

func (s *Service) recordSpend(ctx context.Context, provider string) {
	usd := s.costs[provider]
	s.spend.Record(ctx, provider, usd)
	metrics.RecordSpend(provider, usd)
}

// fullTextResult degrades gracefully when grouping is impossible: the
// whole detected text becomes a single spine for downstream splitting.
func fullTextResult(fragments *models.FragmentSet) *models.SpineResult {
	return &models.SpineResult{Spines: []models.Spine{{Text: fragments.FullText}}}
}
