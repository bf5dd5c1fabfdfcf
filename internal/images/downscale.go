// Package images adapts uploaded photos to the payload limits of the
// OCR providers.
package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/osamaafana/BookScaner/internal/metrics"
)

const (
	// DefaultMaxBase64MB targets 3.5MB: the primary provider rejects
	// base64 payloads around 4MB.
	DefaultMaxBase64MB = 3.5

	minWidth  = 400
	minHeight = 300

	jpegQuality = 85
)

// DownscaleIfNeeded re-encodes the image so its base64 payload fits under
// maxBase64MB. The original bytes are returned unchanged when they already
// fit, or when decoding/encoding fails. The adapted bytes only feed the
// provider call, never the cache key.
func DownscaleIfNeeded(data []byte, maxBase64MB float64) []byte {
	if maxBase64MB <= 0 {
		maxBase64MB = DefaultMaxBase64MB
	}
	metrics.RecordImage("received", len(data))

	b64MB := float64(base64.StdEncoding.EncodedLen(len(data))) / (1024 * 1024)
	if b64MB <= maxBase64MB {
		metrics.RecordImage("kept_original", len(data))
		return data
	}
	slog.Info("Image too large, downscaling", "base64_mb", b64MB, "limit_mb", maxBase64MB)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Failed to decode image for downscaling, using original", "err", err)
		return data
	}

	// base64 inflates binary by ~4/3, and area scales with the square of
	// the linear dimension.
	targetBinaryMB := maxBase64MB / 1.33
	currentBinaryMB := float64(len(data)) / (1024 * 1024)
	scale := math.Sqrt(targetBinaryMB / currentBinaryMB)

	b := img.Bounds()
	newWidth := max(minWidth, int(float64(b.Dx())*scale))
	newHeight := max(minHeight, int(float64(b.Dy())*scale))
	slog.Info("Resizing image", "from_width", b.Dx(), "from_height", b.Dy(), "to_width", newWidth, "to_height", newHeight)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		// jpeg stays jpeg; formats without an encoder (webp) become jpeg
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		slog.Warn("Failed to re-encode downscaled image, using original", "err", err)
		return data
	}

	metrics.RecordImage("downscaled", buf.Len())
	if format != "jpeg" && format != "png" {
		metrics.RecordImage("format_converted", buf.Len())
	}
	slog.Info("Image downscaled", "base64_mb", float64(base64.StdEncoding.EncodedLen(buf.Len()))/(1024*1024))
	return buf.Bytes()
}
