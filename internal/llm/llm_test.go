package llm

import (
	"testing"
	"time"
)

func TestWithDefaultsKeepsTransportTimeout(t *testing.T) {
	opts := Options{APIKey: "k"}.WithDefaults("model-a")
	if opts.Model != "model-a" || opts.MaxTokens != DefaultMaxTokens {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	if opts.Timeout != 0 {
		t.Fatalf("expected no client timeout, got %s", opts.Timeout)
	}

	opts = Options{Model: "model-b", MaxTokens: 10, Timeout: 5 * time.Second}.WithDefaults("model-a")
	if opts.Model != "model-b" || opts.MaxTokens != 10 || opts.Timeout != 5*time.Second {
		t.Fatalf("explicit options overridden: %+v", opts)
	}
}
