// Package embedder provides interfaces for text embedding providers.
//
// A deployment uses one fixed vector dimension for every stored embedding.
// Providers are resolved once at startup and passed to the memory client.
package embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch reports a vector whose length differs from the
// configured dimension. It is a configuration error, never retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider defines the interface for embedding providers.
//
// All embedding implementations (OpenAI, Qwen, Gemini, Ollama, mock) must implement this interface.
type Provider interface {
	// Embed converts texts into vectors of the requested dimension, in order.
	Embed(ctx context.Context, texts []string, dimensions int) ([][]float64, error)

	// Dimensions returns the dimension this provider was configured with.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// Check validates that vectors holds want embeddings of length dims.
func Check(vectors [][]float64, want, dims int) error {
	if len(vectors) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return nil
}

// EmbedOne embeds a single text at the provider's configured dimension and
// validates the result.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float64, error) {
	vectors, err := p.Embed(ctx, []string{text}, p.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := Check(vectors, 1, p.Dimensions()); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Float32To64 widens a float32 vector.
func Float32To64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
