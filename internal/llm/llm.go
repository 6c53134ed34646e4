// Package llm defines the completion client used for AI enrichment and the
// options shared by its providers.
package llm

import (
	"context"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const DefaultMaxTokens = 2000

// Client sends a single prompt and returns the model's text reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configure a provider client.
type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	// Timeout bounds one HTTP round trip. Zero leaves the transport default;
	// callers bound requests through the context.
	Timeout time.Duration
}

// WithDefaults fills zero values.
func (o Options) WithDefaults(defaultModel string) Options {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	return o
}
