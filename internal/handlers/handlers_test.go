package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/metadata"
	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
	"github.com/osamaafana/BookScaner/internal/ratelimit"
	"github.com/osamaafana/BookScaner/internal/spend"
	"github.com/osamaafana/BookScaner/internal/vision"
)

const testDeviceID = "123e4567-e89b-12d3-a456-426614174000"

type stubVision struct {
	res *models.SpineResult
	err error
}

func (s *stubVision) Name() string { return "groq" }

func (s *stubVision) Scan(ctx context.Context, image []byte, mimeType string) (*models.SpineResult, error) {
	return s.res, s.err
}

type stubCatalog struct {
	books map[string]*models.CanonicalBook
}

func (s *stubCatalog) Name() string { return "stub" }

func (s *stubCatalog) ByISBN(ctx context.Context, isbn string) (*models.CanonicalBook, error) {
	return s.books[isbn], nil
}

func (s *stubCatalog) Search(ctx context.Context, title, author string) (*models.CanonicalBook, error) {
	return s.books[title], nil
}

func newTestHandler(t *testing.T, v providers.Vision, catalog metadata.Catalog, limits ratelimit.Config) *Handler {
	t.Helper()
	store := cache.NewMemoryStore()
	gateway := cache.NewGateway(store)
	svc := vision.NewService(gateway, spend.NewGuard(store), vision.Options{Primary: v})
	return New(Options{
		Vision:      svc,
		Resolver:    metadata.NewResolver(gateway, catalog, nil, 0),
		Limiter:     ratelimit.New(store, limits),
		Store:       store,
		MaxUploadMB: 1,
		GroqEnabled: true,
	})
}

func jpegBytes() []byte {
	return append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0x11}, 32)...)
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("creating part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func scanRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, "image", "shelf.jpg", "image/jpeg", data)
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-Id", testDeviceID)
	return req
}

func TestScan(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{
		{Text: "The Hobbit\nJ.R.R. Tolkien"},
	}}}
	catalog := &stubCatalog{books: map[string]*models.CanonicalBook{
		"The Hobbit": {Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780261103344", Fingerprint: "9780261103344"},
	}}
	h := newTestHandler(t, v, catalog, ratelimit.DefaultConfig())

	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Books) != 1 || resp.Books[0].ISBN != "9780261103344" {
		t.Errorf("books = %+v", resp.Books)
	}
	if resp.TotalTextRegions != 1 || resp.ProviderUsed != "groq" {
		t.Errorf("regions/provider = %d/%q", resp.TotalTextRegions, resp.ProviderUsed)
	}
}

func TestScanUnresolvedSpineKeptBestEffort(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{
		{Text: "Obscure Zine\nNobody Famous"},
	}}}
	h := newTestHandler(t, v, &stubCatalog{}, ratelimit.DefaultConfig())

	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Books) != 1 || resp.Books[0].Title != "Obscure Zine" || resp.Books[0].Author != "Nobody Famous" {
		t.Errorf("books = %+v", resp.Books)
	}
	if resp.Books[0].Fingerprint != "obscure zine|nobody famous" {
		t.Errorf("fingerprint = %q, want the fallback record keyed like a resolved one", resp.Books[0].Fingerprint)
	}
}

func TestScanDropsNoSignalSpines(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{
		{Text: "   "},
		{Text: "Dune"},
	}}}
	h := newTestHandler(t, v, &stubCatalog{}, ratelimit.DefaultConfig())

	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))

	var resp models.ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Books) != 1 {
		t.Errorf("books = %+v", resp.Books)
	}
	if resp.TotalTextRegions != 2 {
		t.Errorf("TotalTextRegions = %d, want the raw spine count", resp.TotalTextRegions)
	}
}

func TestScanMissingDeviceID(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	body, contentType := multipartBody(t, "image", "shelf.jpg", "image/jpeg", jpegBytes())
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestScanDeviceIDFromCookie(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{}}}
	h := newTestHandler(t, v, &stubCatalog{}, ratelimit.DefaultConfig())

	body, contentType := multipartBody(t, "image", "shelf.jpg", "image/jpeg", jpegBytes())
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: "device_id", Value: testDeviceID})

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestScanInvalidDeviceID(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	req := scanRequest(t, jpegBytes())
	req.Header.Set("X-Device-Id", "not-a-uuid")

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestScanRateLimited(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{}}}
	limits := ratelimit.Config{IPPerMinute: 1, IPPerDay: 100, DevicePerHour: 100, DevicePerDay: 100}
	h := newTestHandler(t, v, &stubCatalog{}, limits)

	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	var body struct {
		Error      string                `json:"error"`
		Violations []ratelimit.Violation `json:"violations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Error != "rate_limited" || len(body.Violations) != 1 || body.Violations[0].Window != "ip_min" {
		t.Errorf("body = %+v", body)
	}
}

func TestScanRejectsWrongMagicBytes(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	gif := append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 16)...)
	body, contentType := multipartBody(t, "image", "shelf.jpg", "image/jpeg", gif)
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-Id", testDeviceID)

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestScanRejectsDeclaredType(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	body, contentType := multipartBody(t, "image", "notes.txt", "text/plain", jpegBytes())
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-Id", testDeviceID)

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestScanExtensionFallback(t *testing.T) {
	v := &stubVision{res: &models.SpineResult{Spines: []models.Spine{}}}
	h := newTestHandler(t, v, &stubCatalog{}, ratelimit.DefaultConfig())

	body, contentType := multipartBody(t, "file", "shelf.jpeg", "", jpegBytes())
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-Id", testDeviceID)

	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestScanPayloadTooLarge(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	// between the upload cap and the hard reader cap
	huge := append(jpegBytes(), bytes.Repeat([]byte{0x42}, 1536*1024)...)
	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, huge))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestScanPayloadBeyondReaderCap(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	huge := append(jpegBytes(), bytes.Repeat([]byte{0x42}, 3*1024*1024)...)
	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, huge))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestScanPipelineExhausted(t *testing.T) {
	v := &stubVision{err: providers.Unavailable("groq", fmt.Errorf("down"))}
	h := newTestHandler(t, v, &stubCatalog{}, ratelimit.DefaultConfig())

	rec := httptest.NewRecorder()
	h.Scan(rec, scanRequest(t, jpegBytes()))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestEnrichBooks(t *testing.T) {
	catalog := &stubCatalog{books: map[string]*models.CanonicalBook{
		"Dune": {Title: "Dune", Author: "Frank Herbert", Fingerprint: "dune|frank herbert"},
	}}
	h := newTestHandler(t, &stubVision{}, catalog, ratelimit.DefaultConfig())

	payload := `[{"title":"Dune","author":"Frank Herbert"},{"title":"Unknown"}]`
	req := httptest.NewRequest(http.MethodPost, "/v1/books/enrich", strings.NewReader(payload))

	rec := httptest.NewRecorder()
	h.EnrichBooks(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Books []models.CanonicalBook `json:"books"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Books) != 1 || resp.Books[0].Title != "Dune" {
		t.Errorf("books = %+v", resp.Books)
	}
}

func TestEnrichBooksBadBody(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/books/enrich", strings.NewReader(`{"not":"an array"}`))
	rec := httptest.NewRecorder()
	h.EnrichBooks(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubVision{}, &stubCatalog{}, ratelimit.DefaultConfig())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" || body["cache"] != "ok" {
		t.Errorf("body = %v", body)
	}
}
