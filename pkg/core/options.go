package core

import (
	"log/slog"

	"github.com/yashdiniz/focusa-remind/pkg/embedder"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStore uses store instead of building one from Config.VectorStore.
// The client takes ownership and closes it.
func WithStore(store storage.VectorStore) ClientOption {
	return func(c *Client) {
		c.storage = store
	}
}

// WithEmbedder uses p instead of building one from Config.Embedder.
func WithEmbedder(p embedder.Provider) ClientOption {
	return func(c *Client) {
		c.embedder = p
	}
}

// WithLLM uses p instead of building one from Config.LLM.
func WithLLM(p llm.Provider) ClientOption {
	return func(c *Client) {
		c.llm = p
	}
}

// AddOption is a function type for configuring Add operations.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for Add operations.
type AddOptions struct {
	// UserID identifies the user who owns this memory. Required.
	UserID string
}

// WithUserID sets the user ID for Add operations.
//
// Example:
//
//	record, _ := client.Add(ctx, "User likes coffee", core.CategoryFact, core.WithUserID("user_001"))
func WithUserID(userID string) AddOption {
	return func(opts *AddOptions) {
		opts.UserID = userID
	}
}

// UpdateOption is a function type for configuring Update operations.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains configuration options for Update operations.
type UpdateOptions struct {
	// UserID must own the record being superseded.
	UserID string
}

// WithUserIDForUpdate sets the user ID for Update operations.
func WithUserIDForUpdate(userID string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.UserID = userID
	}
}

// DeleteOption is a function type for configuring Delete operations.
type DeleteOption func(*DeleteOptions)

// DeleteOptions contains configuration options for Delete operations.
type DeleteOptions struct {
	UserID string
}

// WithUserIDForDelete sets the user ID for Delete operations.
func WithUserIDForDelete(userID string) DeleteOption {
	return func(opts *DeleteOptions) {
		opts.UserID = userID
	}
}

// SearchOption is a function type for configuring Search and Recall operations.
type SearchOption func(*SearchOptions)

// SearchOptions contains configuration options for Search and Recall operations.
type SearchOptions struct {
	// UserID scopes the search. Required.
	UserID string

	// Limit is the maximum number of hits. Defaults to 10.
	Limit int
}

// WithUserIDForSearch sets the user ID for Search operations.
//
// Example:
//
//	hits, _ := client.Search(ctx, "coffee preference", core.WithUserIDForSearch("user_001"))
func WithUserIDForSearch(userID string) SearchOption {
	return func(opts *SearchOptions) {
		opts.UserID = userID
	}
}

// WithLimit sets the maximum number of results for Search operations.
func WithLimit(limit int) SearchOption {
	return func(opts *SearchOptions) {
		opts.Limit = limit
	}
}

// GetOption is a function type for configuring Get and History operations.
type GetOption func(*GetOptions)

// GetOptions contains configuration options for Get and History operations.
type GetOptions struct {
	UserID string
}

// WithUserIDForGet sets the user ID for Get operations.
func WithUserIDForGet(userID string) GetOption {
	return func(opts *GetOptions) {
		opts.UserID = userID
	}
}

func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func applyUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func applyDeleteOptions(opts []DeleteOption) *DeleteOptions {
	options := &DeleteOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func applySearchOptions(opts []SearchOption) *SearchOptions {
	options := &SearchOptions{
		Limit: storage.DefaultLimit,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func applyGetOptions(opts []GetOption) *GetOptions {
	options := &GetOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
