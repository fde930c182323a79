// Package ollama implements llm.Provider against a local or remote Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
)

// Client is an Ollama LLM client.
type Client struct {
	client *api.Client
	model  string
}

// Config is the configuration for Ollama LLM.
// Model: Model name to use, defaults to "llama3.2"
// BaseURL: Ollama service address, defaults to "http://localhost:11434"
// HTTPClient: Custom HTTP client, defaults to http.DefaultClient
type Config struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Ollama LLM client.
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	uri, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		client: api.NewClient(uri, httpClient),
		model:  model,
	}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.Response, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages sends a non-streaming /api/chat request.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (*llm.Response, error) {
	options := llm.ApplyGenerateOptions(opts)

	apiMsgs := make([]api.Message, len(messages))
	for i, m := range messages {
		apiMsgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: apiMsgs,
		Stream:   new(bool),
		Options: map[string]any{
			"temperature": options.Temperature,
			"top_p":       options.TopP,
			"num_predict": options.MaxTokens,
		},
	}
	if len(options.Stop) > 0 {
		req.Options["stop"] = options.Stop
	}
	if options.JSON {
		req.Format = []byte(`"json"`)
	}

	var content strings.Builder
	var usage llm.Usage
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("%w: empty message from Ollama", llm.ErrEmptyResponse)
	}

	return &llm.Response{Content: content.String(), Usage: usage}, nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
