// Package ollama implements embedder.Provider against a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/yashdiniz/focusa-remind/pkg/embedder"
)

// Client is an Ollama embedding client.
type Client struct {
	client     *api.Client
	model      string
	dimensions int
}

// Config is the configuration for Ollama embeddings.
// BaseURL defaults to http://localhost:11434.
type Config struct {
	BaseURL    string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

// NewClient creates a new Ollama embedding client.
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	uri, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768
	}

	return &Client{
		client:     api.NewClient(uri, httpClient),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed calls /api/embed with all texts. A positive dimensions asks the
// server to truncate each embedding to that size; zero keeps the model's.
func (c *Client) Embed(ctx context.Context, texts []string, dimensions int) ([][]float64, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model:      c.model,
		Input:      texts,
		Dimensions: dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = embedder.Float32To64(e)
	}
	return out, nil
}

// Dimensions returns the configured dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
