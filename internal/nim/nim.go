// Package nim groups raw OCR fragments into per-book spines using an
// NVIDIA NIM chat-completion model. The model does grouping only; it
// never invents text.
package nim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
)

const (
	defaultBaseURL = "https://integrate.api.nvidia.com"
	defaultModel   = "meta/llama-3.1-70b-instruct"
)

const systemPrompt = `You are a JSON-only response generator. Input: OCR fragments with text + bbox in [0,1]. Output: DISTINCT PHYSICAL BOOKS.

CONTRACT:
Return ONLY valid JSON: {"spines":[{"text":string,"candidate_isbn":null,"bbox":{"x":0.1234,"y":0.5678,"w":0.1111,"h":0.2222}}]}
If none: {"spines":[]}.

GROUPING:
- ONE entry = ONE physical spine/cover.
- Merge fragments that overlap or align on the same vertical strip.
- Author names, subtitles, marketing badges belong to the SAME entry; never separate.
- CRITICAL: If a fragment contains ONLY an author name (like 'Rudyard Kipling', 'A. A. Milne', 'P. L. Travers'), IGNORE it completely. These are not separate books.
- If a spine lists multiple related titles (sequels/series list), return ONLY the base/main title (shortest shared-prefix title on that spine).
- No duplicates.

BBOX:
- x=min(x_i), y=min(y_i), w=max(x_i)-min(x_i), h=max(y_i)-min(y_i).
- Round to 4 decimals.

QUALITY:
- Maximize recall, minimize false positives. No invented text.
- Sort by bbox.y then bbox.x.

Respond with STRICT JSON only.`

// Client talks to an OpenAI-compatible NIM endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "nim" }

// Aggregate sends the fragment candidates to the grouping model and
// parses one spine per physical book out of its reply. Reasoning models
// sometimes leave content empty and put the answer in reasoning_content;
// that field is accepted as a substitute.
func (c *Client) Aggregate(ctx context.Context, fragments *models.FragmentSet) (*models.SpineResult, error) {
	userPrompt, err := json.Marshal(map[string]any{"candidates": fragments.Fragments})
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("marshaling candidates: %w", err))
	}

	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": string(userPrompt)},
		},
		"temperature": 0,
		"max_tokens":  2000,
	})
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("calling NIM: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("NIM returned %d: %s", resp.StatusCode, providers.Truncate(string(body), 200)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content          string `json:"content"`
				ReasoningContent string `json:"reasoning_content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("response carried no choices"))
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		content = parsed.Choices[0].Message.ReasoningContent
	}
	if content == "" {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("response carried no content"))
	}
	return providers.DecodeSpines(c.Name(), content)
}
