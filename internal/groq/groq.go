// Package groq calls Groq's OpenAI-compatible vision chat API for direct
// per-spine extraction. It is the primary OCR provider.
package groq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// Client is a vision provider backed by Groq chat completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New returns a Groq vision client. An empty model selects the default.
func New(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "groq" }

// Scan sends the image with the structured-output prompt and parses the
// strict-JSON spine list. Any failure surfaces as a provider error so the
// orchestrator can fall back.
func (c *Client) Scan(ctx context.Context, image []byte, mimeType string) (*models.SpineResult, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	b64 := base64.StdEncoding.EncodeToString(image)

	requestBody, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": providers.SpinePrompt},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": "data:" + mimeType + ";base64," + b64,
						},
					},
				},
			},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.Unavailable("groq", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, providers.Unavailable("groq", fmt.Errorf("status %d: %s", resp.StatusCode, providers.Truncate(string(body), 200)))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, providers.ParseFailure("groq", err)
	}
	if len(response.Choices) == 0 {
		return nil, providers.ParseFailure("groq", fmt.Errorf("no choices in response"))
	}

	result, err := providers.DecodeSpines("groq", response.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	slog.Info("Groq vision scan complete", "model", c.model, "spines", len(result.Spines))
	return result, nil
}
