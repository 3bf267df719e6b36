package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/atticus-legal/atticus/config"
)

// ErrUnavailable indicates the external provider cannot be reached or is not
// configured. Callers are expected to degrade to a local fallback rather than
// surface this to end users.
var ErrUnavailable = errors.New("llm provider unavailable")

// Provider abstracts the completion/embedding backend.
type Provider interface {
	// Generate produces a single completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream produces a completion incrementally, invoking onDelta for
	// every text fragment as it arrives. It returns the accumulated full text.
	// If onDelta returns an error the stream is abandoned.
	GenerateStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error)

	// Embed converts texts into fixed-length vectors, preserving input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Available reports whether the provider has credentials to make calls.
	Available() bool
}

// NewProvider creates a provider based on configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider type: %s", cfg.Provider)
	}
}
