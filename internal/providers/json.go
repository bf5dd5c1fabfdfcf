package providers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/osamaafana/BookScaner/internal/models"
)

// SpinePrompt is the structured-output contract sent to vision-capable
// chat models for direct per-spine extraction.
const SpinePrompt = `You are a bookshelf OCR system. Detect visible book spines in the photo. ` +
	`For each spine, extract readable text (title/author/ISBN if present). ` +
	`If you can estimate a tight bounding box around the spine normalized to [0,1], include it. ` +
	`Return ONLY strict JSON with this schema:
{"spines":[{"text":"...","candidate_isbn":"...","bbox":{"x":0,"y":0,"w":0,"h":0}}]}
Use null for an unknown candidate_isbn or bbox. Sort spines top-to-bottom, then left-to-right.`

// ExtractJSON unwraps a model response that may arrive fenced in markdown
// code blocks or prefixed with a bare "json" token.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "```"); start != -1 {
		if end := strings.Index(content[start+3:], "```"); end != -1 {
			content = strings.TrimSpace(content[start+3 : start+3+end])
		}
	}
	content = strings.TrimSpace(strings.TrimPrefix(content, "json"))
	return content
}

// DecodeSpines parses a chat model's response into a SpineResult, failing
// closed: a payload without the spines field is a parse failure, not an
// empty success. Spines with blank text are dropped.
func DecodeSpines(provider, content string) (*models.SpineResult, error) {
	content = ExtractJSON(content)
	if content == "" {
		return nil, ParseFailure(provider, errors.New("empty response content"))
	}

	var payload struct {
		Spines *[]models.Spine `json:"spines"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, ParseFailure(provider, err)
	}
	if payload.Spines == nil {
		return nil, ParseFailure(provider, errors.New("response is missing the spines field"))
	}

	spines := make([]models.Spine, 0, len(*payload.Spines))
	for _, s := range *payload.Spines {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.BBox != nil {
			rounded := s.BBox.Round4()
			s.BBox = &rounded
		}
		spines = append(spines, s)
	}
	return &models.SpineResult{Spines: spines}, nil
}

// Truncate shortens payload snippets for logging so diagnostics never
// carry full provider responses.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
