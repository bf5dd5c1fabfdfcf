// Package providers defines the contracts for the external OCR,
// aggregation and vision services the scan pipeline calls.
package providers

import (
	"context"
	"fmt"

	"github.com/osamaafana/BookScaner/internal/models"
)

// Kind classifies a provider failure. The fallback chain treats both
// kinds the same way; the distinction only matters for diagnostics.
type Kind string

const (
	// KindUnavailable covers transport failures, timeouts and non-2xx
	// responses.
	KindUnavailable Kind = "unavailable"
	// KindParse covers malformed or non-conforming upstream responses.
	KindParse Kind = "parse"
)

// Error is returned by every outbound provider call.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable wraps a transport-level failure.
func Unavailable(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindUnavailable, Err: err}
}

// ParseFailure wraps a malformed-response failure.
func ParseFailure(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindParse, Err: err}
}

// Vision extracts one record per physical book spine from a shelf photo.
type Vision interface {
	Name() string
	Scan(ctx context.Context, image []byte, mimeType string) (*models.SpineResult, error)
}

// Detector runs full-document OCR, returning the page-level text plus raw
// fragments with normalized bounding boxes.
type Detector interface {
	Name() string
	Detect(ctx context.Context, image []byte) (*models.FragmentSet, error)
}

// Aggregator groups raw OCR fragments into one record per physical spine.
type Aggregator interface {
	Name() string
	Aggregate(ctx context.Context, fragments *models.FragmentSet) (*models.SpineResult, error)
}
