package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/FranksOps/orchid/internal/metrics"
)

// OpenAI talks to any OpenAI-compatible chat completion endpoint, such as
// Together AI.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a client. baseURL may be empty to use OpenAI itself;
// hc may be nil to use the library's default HTTP client.
func NewOpenAI(apiKey, baseURL, model string, hc *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// Complete sends prompt as a single user message. A reply without choices
// yields an empty string and no error.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	metrics.RecordUpstream("openai", err)
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", o.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
