// Package qwen implements embedder.Provider with the DashScope text-embedding API.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a DashScope embedding client.
type Client struct {
	client     *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config is the configuration for Qwen embeddings.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	HTTPClient *http.Client
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      input  `json:"input"`
	Parameters params `json:"parameters"`
}

type input struct {
	Texts []string `json:"texts"`
}

type params struct {
	Dimension int    `json:"dimension,omitempty"`
	TextType  string `json:"text_type"`
}

type embedResponse struct {
	Output struct {
		Embeddings []struct {
			TextIndex int       `json:"text_index"`
			Embedding []float64 `json:"embedding"`
		} `json:"embeddings"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a new Qwen embedding client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/api/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-v4"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1024
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		client:     client,
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
	}, nil
}

// Embed posts all texts in one request.
func (c *Client) Embed(ctx context.Context, texts []string, dimensions int) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{
		Model:      c.model,
		Input:      input{Texts: texts},
		Parameters: params{Dimension: dimensions, TextType: "document"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/services/embeddings/text-embedding/text-embedding"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(b))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Output.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding generation failed: got %d results from Qwen API, expected %d (%s)",
			len(out.Output.Embeddings), len(texts), out.Message)
	}

	embeddings := make([][]float64, len(texts))
	for _, e := range out.Output.Embeddings {
		if e.TextIndex < 0 || e.TextIndex >= len(texts) {
			return nil, fmt.Errorf("embedding generation failed: text_index %d out of range", e.TextIndex)
		}
		embeddings[e.TextIndex] = e.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the configured dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
