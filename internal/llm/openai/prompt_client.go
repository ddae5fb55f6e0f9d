package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cvforge-backend/internal/llm"
)

// PromptClient implements single-prompt JSON completions.
type PromptClient struct {
	inner *Client
}

// NewPromptClient constructs a prompt client for JSON completions.
func NewPromptClient(apiKey, model string) (*PromptClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return &PromptClient{
		inner: &Client{
			apiKey:     apiKey,
			model:      model,
			httpClient: &http.Client{Timeout: requestTimeout()},
		},
	}, nil
}

// Complete returns the raw model response for the prompt.
func (c *PromptClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
	return c.inner.completeOnce(ctx, messages)
}

var _ llm.Completer = (*PromptClient)(nil)
