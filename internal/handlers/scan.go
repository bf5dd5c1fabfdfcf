package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/osamaafana/BookScaner/internal/fingerprint"
	"github.com/osamaafana/BookScaner/internal/images"
	"github.com/osamaafana/BookScaner/internal/metadata"
	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/ratelimit"
)

var extensionMIMEs = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Scan accepts a bookshelf photo, runs OCR across the provider chain
// and resolves every detected spine against the book catalogs.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	did, err := deviceID(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.limiter.Allow(r.Context(), clientIP(r), did); err != nil {
		var denied *ratelimit.DeniedError
		if errors.As(err, &denied) {
			h.writeRateLimited(w, denied)
			return
		}
		h.writeError(w, "Rate limit check failed", http.StatusInternalServerError)
		return
	}

	blob, mimeType, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, provider, err := h.vision.Scan(r.Context(), blob, mimeType, h.groqEnabled)
	if err != nil {
		slog.Error("Vision pipeline failed", "err", err)
		h.writeError(w, "OCR is temporarily unavailable", http.StatusBadGateway)
		return
	}

	books := h.resolveSpines(r, result.Spines)
	h.writeJSON(w, models.ScanResponse{
		Books:            books,
		TotalTextRegions: len(result.Spines),
		ProviderUsed:     provider,
	})
}

// resolveSpines turns raw spine text into canonical books. A spine that
// no catalog recognizes still ships with its parsed title/author guess;
// only spines with no usable signal at all are dropped.
func (h *Handler) resolveSpines(r *http.Request, spines []models.Spine) []models.CanonicalBook {
	books := []models.CanonicalBook{}
	for _, spine := range spines {
		partial := metadata.SplitSpineText(spine)
		if partial.Title == "" && partial.Author == "" && partial.ISBN == "" {
			continue
		}
		if book := h.resolver.Resolve(r.Context(), partial); book != nil {
			books = append(books, *book)
			continue
		}
		books = append(books, models.CanonicalBook{
			Title:       partial.Title,
			Author:      partial.Author,
			ISBN:        partial.ISBN,
			Fingerprint: fingerprint.Make(partial.Title, partial.Author, partial.ISBN),
		})
	}
	return books
}

// readUpload pulls the image out of the multipart form and validates
// size and format. The declared content type is only a hint; the actual
// bytes decide.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, "Max upload is "+strconv.FormatInt(h.maxUploadBytes/(1024*1024), 10)+" MB", http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		h.writeError(w, "Expected a multipart form with an image file", http.StatusBadRequest)
		return nil, "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		h.writeError(w, "Missing image file field", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	if declared := declaredMIME(header); !allowedDeclaredMIME(declared) {
		h.writeError(w, "Only JPEG/PNG/WebP are allowed", http.StatusUnsupportedMediaType)
		return nil, "", false
	}

	blob, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Unable to read upload", http.StatusBadRequest)
		return nil, "", false
	}
	if int64(len(blob)) > h.maxUploadBytes {
		h.writeError(w, "Max upload is "+strconv.FormatInt(h.maxUploadBytes/(1024*1024), 10)+" MB", http.StatusRequestEntityTooLarge)
		return nil, "", false
	}

	mimeType, allowed := images.DetectMIME(blob)
	if !allowed {
		h.writeError(w, "Only JPEG/PNG/WebP are allowed", http.StatusUnsupportedMediaType)
		return nil, "", false
	}
	return blob, mimeType, true
}

// declaredMIME prefers the part's Content-Type, falling back to the
// filename extension for clients that omit it.
func declaredMIME(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return extensionMIMEs[strings.ToLower(filepath.Ext(header.Filename))]
}

func allowedDeclaredMIME(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

func (h *Handler) writeRateLimited(w http.ResponseWriter, denied *ratelimit.DeniedError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(denied.RetryAfterSeconds))
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error":      "rate_limited",
		"violations": denied.Violations,
	}); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}
