package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/FranksOps/orchid/internal/metrics"
)

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini client. baseURL overrides the API endpoint and
// is normally empty; hc may be nil.
func NewGemini(ctx context.Context, apiKey, baseURL, model string, hc *http.Client) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	metrics.RecordUpstream("gemini", err)
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", g.model, err)
	}
	return resp.Text(), nil
}
