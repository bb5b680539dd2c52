// Package llm provides language-model client functionality for SQL translation.
package llm

import (
	"context"
)

// Client defines the interface for one outbound model call.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse sends the prompt and returns the model's raw text.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy Client at compile time.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*MockClient)(nil)
)
