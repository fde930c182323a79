// Package gemini implements embedder.Provider with the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"

	"github.com/yashdiniz/focusa-remind/pkg/embedder"
	"google.golang.org/genai"
)

// Client is a Gemini embedding client.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
}

// Config is the configuration for Gemini embeddings.
//
// With Project set the client uses Vertex AI, otherwise the Gemini API
// with APIKey. Model defaults to gemini-embedding-001 at 128 dimensions.
type Config struct {
	APIKey     string
	Project    string
	Location   string
	Model      string
	Dimensions int
	TaskType   string
}

// NewClient creates a new Gemini embedding client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := &Client{
		client:     client,
		model:      "gemini-embedding-001",
		dimensions: 128,
		taskType:   "RETRIEVAL_DOCUMENT",
	}
	if cfg.Model != "" {
		c.model = cfg.Model
	}
	if cfg.Dimensions > 0 {
		c.dimensions = cfg.Dimensions
	}
	if cfg.TaskType != "" {
		c.taskType = cfg.TaskType
	}
	return c, nil
}

// Embed sends one content per text and asks for dimensions outputs.
func (c *Client) Embed(ctx context.Context, texts []string, dimensions int) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{TaskType: c.taskType}
	if dimensions > 0 {
		dim := int32(dimensions)
		config.OutputDimensionality = &dim
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding generation failed: got %d results from Gemini, expected %d", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding generation failed: result %d is empty", i)
		}
		out[i] = embedder.Float32To64(e.Values)
	}
	return out, nil
}

// Dimensions returns the configured dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
