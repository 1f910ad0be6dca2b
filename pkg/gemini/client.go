// Package gemini wraps the Gemini generateContent API for single-shot prompts.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/leadscout/internal/resilience"
)

// Config configures the Gemini client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API base URL.
	BaseURL string
}

// Client generates text with a single Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, eris.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &Client{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

// Generate sends prompt and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		CandidateCount: 1,
	})
	if err != nil {
		return "", classifyErr(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.New("gemini: empty response")
	}
	return text, nil
}

// classifyErr converts API errors into typed service errors so callers can
// tell quota exhaustion from transient failures.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.NewServiceError("gemini", apiErr.Code, eris.Wrap(err, "gemini: generate content"))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return resilience.NewServiceError("gemini", apiErrPtr.Code, eris.Wrap(err, "gemini: generate content"))
	}
	return eris.Wrap(err, "gemini: generate content")
}
