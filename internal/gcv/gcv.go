// Package gcv calls the Google Cloud Vision REST API for full-document
// text detection. It returns raw text fragments with bounding boxes
// normalized against the detected full-text region, ready for a
// downstream aggregation pass.
package gcv

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
)

const defaultBaseURL = "https://vision.googleapis.com"

// Client detects text fragments in an image via DOCUMENT_TEXT_DETECTION.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "gcv" }

type vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type annotation struct {
	Description  string `json:"description"`
	BoundingPoly struct {
		Vertices []vertex `json:"vertices"`
	} `json:"boundingPoly"`
}

// Detect runs document text detection on the image and returns the full
// detected text plus individual fragments. Fragment boxes are pixel
// polygons normalized to [0,1] against the full-text bounding box so the
// aggregation model sees a consistent coordinate frame regardless of
// image resolution.
func (c *Client) Detect(ctx context.Context, image []byte) (*models.FragmentSet, error) {
	reqBody := map[string]any{
		"requests": []map[string]any{
			{
				"image":    map[string]string{"content": base64.StdEncoding.EncodeToString(image)},
				"features": []map[string]string{{"type": "DOCUMENT_TEXT_DETECTION"}},
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	url := fmt.Sprintf("%s/v1/images:annotate?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("calling vision API: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("vision API returned %d: %s", resp.StatusCode, providers.Truncate(string(body), 200)))
	}

	var parsed struct {
		Responses []struct {
			FullTextAnnotation struct {
				Text string `json:"text"`
			} `json:"fullTextAnnotation"`
			TextAnnotations []annotation `json:"textAnnotations"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Responses) == 0 {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("response carried no annotation results"))
	}

	ann := parsed.Responses[0]
	fullText := ann.FullTextAnnotation.Text
	if fullText == "" && len(ann.TextAnnotations) > 0 {
		fullText = ann.TextAnnotations[0].Description
	}

	set := &models.FragmentSet{FullText: strings.TrimSpace(fullText)}
	if len(ann.TextAnnotations) < 2 {
		return set, nil
	}

	// The first annotation covers the entire detected text region and
	// serves as the normalization frame for the rest.
	frame := polyBounds(ann.TextAnnotations[0].BoundingPoly.Vertices)
	for _, a := range ann.TextAnnotations[1:] {
		text := strings.TrimSpace(a.Description)
		if text == "" {
			continue
		}
		set.Fragments = append(set.Fragments, models.Fragment{
			Text: text,
			BBox: normalize(polyBounds(a.BoundingPoly.Vertices), frame),
		})
	}
	return set, nil
}

type bounds struct {
	minX, minY, maxX, maxY float64
}

func polyBounds(vs []vertex) bounds {
	if len(vs) == 0 {
		return bounds{}
	}
	b := bounds{minX: vs[0].X, minY: vs[0].Y, maxX: vs[0].X, maxY: vs[0].Y}
	for _, v := range vs[1:] {
		b.minX = min(b.minX, v.X)
		b.minY = min(b.minY, v.Y)
		b.maxX = max(b.maxX, v.X)
		b.maxY = max(b.maxY, v.Y)
	}
	return b
}

func normalize(b, frame bounds) models.BBox {
	fw := frame.maxX - frame.minX
	fh := frame.maxY - frame.minY
	if fw <= 0 || fh <= 0 {
		return models.BBox{}
	}
	box := models.BBox{
		X: clamp01((b.minX - frame.minX) / fw),
		Y: clamp01((b.minY - frame.minY) / fh),
		W: clamp01((b.maxX - b.minX) / fw),
		H: clamp01((b.maxY - b.minY) / fh),
	}
	return box.Round4()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
