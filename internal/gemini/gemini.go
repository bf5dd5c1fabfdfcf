// Package gemini implements spine extraction on Google Gemini as an
// alternate vision provider.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
)

const defaultModel = "gemini-2.0-flash"

// Client extracts book spines from shelf photos using Gemini.
type Client struct {
	apiKey string
	model  string
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{apiKey: apiKey, model: model}
}

func (c *Client) Name() string { return "gemini" }

// Scan sends the image and the structured-output prompt to Gemini and
// parses one spine per detected book.
func (c *Client) Scan(ctx context.Context, image []byte, mimeType string) (*models.SpineResult, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("failed to create gemini client: %w", err))
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(0)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(providers.SpinePrompt),
	)
	if err != nil {
		return nil, providers.Unavailable(c.Name(), fmt.Errorf("failed to generate content: %w", err))
	}

	if len(resp.Candidates) == 0 {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("no candidates returned"))
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("empty content returned"))
	}
	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, providers.ParseFailure(c.Name(), fmt.Errorf("unexpected response part %T", candidate.Content.Parts[0]))
	}

	return providers.DecodeSpines(c.Name(), string(txt))
}

// imageFormat maps a MIME type to the bare format token genai expects.
func imageFormat(mimeType string) string {
	switch strings.TrimPrefix(mimeType, "image/") {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpeg"
	}
}
