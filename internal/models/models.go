// Package models holds the data shapes shared across the scan pipeline.
package models

import "math"

// BBox is a bounding box normalized to [0,1] relative to the image.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Round4 returns the box with every coordinate rounded to 4 decimals.
func (b BBox) Round4() BBox {
	return BBox{X: round4(b.X), Y: round4(b.Y), W: round4(b.W), H: round4(b.H)}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Spine is one detected physical book: its extracted text, an optional
// ISBN guess and an optional normalized bounding box. Immutable once
// returned from a scan.
type Spine struct {
	Text          string `json:"text"`
	CandidateISBN string `json:"candidate_isbn,omitempty"`
	BBox          *BBox  `json:"bbox,omitempty"`
}

// SpineResult is the OCR stage's output, one entry per physical book.
type SpineResult struct {
	Spines []Spine `json:"spines"`
}

// Fragment is a raw OCR text fragment with its normalized bounding box,
// produced by the full-document detector before aggregation.
type Fragment struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// FragmentSet is the full-document OCR output: the page-level text plus
// the individual fragments normalized against the detected text block.
type FragmentSet struct {
	FullText  string
	Fragments []Fragment
}

// CanonicalBook is a fully resolved bibliographic record. Never mutated
// after creation; re-resolution overwrites the cache entry with a new value.
type CanonicalBook struct {
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Year        int      `json:"year,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

// PartialBook is a raw (title, author, isbn) guess awaiting resolution.
type PartialBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// ScanResponse is the inbound scan operation's result.
type ScanResponse struct {
	Books            []CanonicalBook `json:"books"`
	TotalTextRegions int             `json:"total_text_regions"`
	ProviderUsed     string          `json:"provider_used"`
}
