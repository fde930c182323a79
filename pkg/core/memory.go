package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/yashdiniz/focusa-remind/pkg/embedder"
	geminiEmbedder "github.com/yashdiniz/focusa-remind/pkg/embedder/gemini"
	mockEmbedder "github.com/yashdiniz/focusa-remind/pkg/embedder/mock"
	ollamaEmbedder "github.com/yashdiniz/focusa-remind/pkg/embedder/ollama"
	openaiEmbedder "github.com/yashdiniz/focusa-remind/pkg/embedder/openai"
	qwenEmbedder "github.com/yashdiniz/focusa-remind/pkg/embedder/qwen"
	"github.com/yashdiniz/focusa-remind/pkg/llm"
	anthropicLLM "github.com/yashdiniz/focusa-remind/pkg/llm/anthropic"
	geminiLLM "github.com/yashdiniz/focusa-remind/pkg/llm/gemini"
	ollamaLLM "github.com/yashdiniz/focusa-remind/pkg/llm/ollama"
	openaiLLM "github.com/yashdiniz/focusa-remind/pkg/llm/openai"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
	chromemStore "github.com/yashdiniz/focusa-remind/pkg/storage/chromem"
	"github.com/yashdiniz/focusa-remind/pkg/storage/oceanbase"
	postgresStore "github.com/yashdiniz/focusa-remind/pkg/storage/postgres"
	sqliteStore "github.com/yashdiniz/focusa-remind/pkg/storage/sqlite"
)

// maxHistoryDepth bounds History walks over corrupt parent chains.
const maxHistoryDepth = 1000

// Client is the main remind client for managing versioned memories.
//
// Every operation is scoped to a single user. Records are never physically
// removed: Update supersedes a record with a child in one transaction and
// Delete flips a soft-delete flag.
//
// Client is safe for concurrent use. Concurrent mutations for the same user
// are serialized by the store's transactions, not in process.
//
// Example:
//
//	cfg, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(cfg)
//	defer client.Close()
//
//	record, _ := client.Add(ctx, "User likes coffee", core.CategoryFact, core.WithUserID("user_001"))
type Client struct {
	config *Config

	storage storage.VectorStore

	llm llm.Provider

	embedder embedder.Provider

	snowflakeNode *snowflake.Node

	logger *slog.Logger

	dims int
}

// NewClient creates a new remind client from cfg.
//
// Components not supplied through options are built from cfg. The LLM is
// optional and left nil when cfg.LLM.Provider is empty.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config: cfg,
		dims:   cfg.Embedder.Dimensions,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}

	var err error
	if client.embedder == nil {
		if client.embedder, err = initEmbedder(cfg.Embedder); err != nil {
			return nil, err
		}
	}
	if got := client.embedder.Dimensions(); got != client.dims {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: embedder produces %d dimensions, configured %d", ErrDimensionMismatch, got, client.dims))
	}
	if client.llm == nil {
		if client.llm, err = initLLM(cfg.LLM); err != nil {
			return nil, err
		}
	}
	if client.storage == nil {
		if client.storage, err = initStorage(cfg.VectorStore, cfg.StoreDims()); err != nil {
			return nil, NewMemoryError("NewClient", classifyStoreError(err, nil))
		}
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNodeID)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}
	client.snowflakeNode = node

	return client, nil
}

// Add stores content as a new root memory.
//
// Nothing is written when embedding fails (ErrEmbeddingFailed) or the vector
// has the wrong size (ErrDimensionMismatch). An empty category defaults to
// CategoryFact.
func (c *Client) Add(ctx context.Context, content string, category Category, opts ...AddOption) (*MemoryRecord, error) {
	addOpts := applyAddOptions(opts)

	content = strings.TrimSpace(content)
	if err := validateWrite(addOpts.UserID, content); err != nil {
		return nil, NewMemoryError("Add", err)
	}
	category, err := normalizeCategory(category)
	if err != nil {
		return nil, NewMemoryError("Add", err)
	}

	embedding, err := c.embed(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Add", err)
	}

	record := &MemoryRecord{
		ID:        c.snowflakeNode.Generate().Int64(),
		UserID:    addOpts.UserID,
		Fact:      content,
		Embedding: embedding,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}

	if err := c.storage.Insert(ctx, toStorageRecord(record)); err != nil {
		c.logger.Error("add failed", "user_id", addOpts.UserID, "error", err)
		return nil, NewMemoryError("Add", classifyStoreError(err, nil))
	}

	c.logger.Debug("memory added", "user_id", addOpts.UserID, "memory_id", record.ID)
	return record, nil
}

// Update supersedes memoryID with a new record holding content.
//
// The new embedding is computed before any write. The parent is then marked
// deleted and the child inserted in one transaction. If the parent is not an
// active record of the user, nothing changes and ErrUpdateFailed is returned.
func (c *Client) Update(ctx context.Context, memoryID int64, content string, edgeType EdgeType, category Category, opts ...UpdateOption) (*MemoryRecord, error) {
	updateOpts := applyUpdateOptions(opts)

	content = strings.TrimSpace(content)
	if err := validateWrite(updateOpts.UserID, content); err != nil {
		return nil, NewMemoryError("Update", err)
	}
	if !edgeType.Valid() {
		return nil, NewMemoryError("Update", fmt.Errorf("%w: edge type %q", ErrInvalidInput, edgeType))
	}
	category, err := normalizeCategory(category)
	if err != nil {
		return nil, NewMemoryError("Update", err)
	}

	embedding, err := c.embed(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Update", err)
	}

	parentID := memoryID
	child := &MemoryRecord{
		ID:        c.snowflakeNode.Generate().Int64(),
		UserID:    updateOpts.UserID,
		Fact:      content,
		Embedding: embedding,
		Category:  category,
		ParentID:  &parentID,
		EdgeType:  edgeType,
		CreatedAt: time.Now().UTC(),
	}

	if err := c.storage.Supersede(ctx, updateOpts.UserID, memoryID, toStorageRecord(child)); err != nil {
		c.logger.Warn("update rolled back", "user_id", updateOpts.UserID, "memory_id", memoryID, "error", err)
		return nil, NewMemoryError("Update", classifyStoreError(err, ErrUpdateFailed))
	}

	c.logger.Debug("memory superseded", "user_id", updateOpts.UserID, "memory_id", memoryID, "child_id", child.ID)
	return child, nil
}

// Delete soft-deletes every listed record that is active and owned by the user.
//
// Unknown, foreign and already deleted ids are skipped. When nothing
// qualifies the result is non-nil with empty DeletedIDs and the error is
// ErrNothingDeleted, which IsBenign reports as a no-op.
func (c *Client) Delete(ctx context.Context, ids []int64, opts ...DeleteOption) (*DeleteResult, error) {
	deleteOpts := applyDeleteOptions(opts)
	result := &DeleteResult{DeletedIDs: []int64{}}

	if deleteOpts.UserID == "" {
		return result, NewMemoryError("Delete", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}
	if len(ids) == 0 {
		return result, NewMemoryError("Delete", ErrNothingDeleted)
	}

	deleted, err := c.storage.SoftDelete(ctx, deleteOpts.UserID, ids)
	if err != nil {
		c.logger.Error("delete failed", "user_id", deleteOpts.UserID, "error", err)
		return result, NewMemoryError("Delete", classifyStoreError(err, nil))
	}
	if len(deleted) == 0 {
		return result, NewMemoryError("Delete", ErrNothingDeleted)
	}

	result.DeletedIDs = deleted
	c.logger.Debug("memories deleted", "user_id", deleteOpts.UserID, "count", len(deleted))
	return result, nil
}

// Search ranks the user's active memories by cosine similarity to query.
//
// Results are ordered by similarity, then recency, then id. Retrieval is
// best-effort: when the query cannot be embedded the failure is logged and
// an empty result is returned with a nil error. Store failures still surface.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) ([]*SearchHit, error) {
	searchOpts := applySearchOptions(opts)
	if searchOpts.UserID == "" {
		return nil, NewMemoryError("Search", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}

	records, err := c.vectorSearch(ctx, query, searchOpts)
	if err != nil {
		return nil, NewMemoryError("Search", err)
	}
	return toSearchHits(records), nil
}

// Recall returns keyword matches first, scored 1 and newest first, then tops
// up with Search results until the limit is reached.
func (c *Client) Recall(ctx context.Context, query string, opts ...SearchOption) ([]*SearchHit, error) {
	searchOpts := applySearchOptions(opts)
	if searchOpts.UserID == "" {
		return nil, NewMemoryError("Recall", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}

	limit := (&storage.SearchOptions{Limit: searchOpts.Limit}).EffectiveLimit()
	keyword, err := c.storage.KeywordSearch(ctx, &storage.SearchOptions{
		UserID: searchOpts.UserID,
		Limit:  limit,
		Query:  query,
	})
	if err != nil {
		return nil, NewMemoryError("Recall", classifyStoreError(err, nil))
	}
	if len(keyword) >= limit {
		return toSearchHits(storage.Truncate(keyword, limit)), nil
	}

	vector, err := c.vectorSearch(ctx, query, searchOpts)
	if err != nil {
		return nil, NewMemoryError("Recall", err)
	}

	seen := make(map[int64]bool, len(keyword))
	merged := make([]*storage.Record, 0, limit)
	for _, r := range keyword {
		seen[r.ID] = true
		merged = append(merged, r)
	}
	for _, r := range vector {
		if len(merged) >= limit {
			break
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
	}
	return toSearchHits(merged), nil
}

// Get returns a record by id, including deleted ones.
func (c *Client) Get(ctx context.Context, id int64, opts ...GetOption) (*MemoryRecord, error) {
	getOpts := applyGetOptions(opts)
	if getOpts.UserID == "" {
		return nil, NewMemoryError("Get", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}

	record, err := c.storage.Get(ctx, id, &storage.GetOptions{UserID: getOpts.UserID})
	if err != nil {
		return nil, NewMemoryError("Get", classifyStoreError(err, nil))
	}
	return fromStorageRecord(record), nil
}

// History returns id and every record it transitively superseded, newest first.
func (c *Client) History(ctx context.Context, id int64, opts ...GetOption) ([]*MemoryRecord, error) {
	getOpts := applyGetOptions(opts)
	if getOpts.UserID == "" {
		return nil, NewMemoryError("History", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}

	var chain []*MemoryRecord
	seen := make(map[int64]bool)
	next := &id
	for next != nil && len(chain) < maxHistoryDepth {
		if seen[*next] {
			break
		}
		seen[*next] = true

		record, err := c.storage.Get(ctx, *next, &storage.GetOptions{UserID: getOpts.UserID})
		if err != nil {
			return nil, NewMemoryError("History", classifyStoreError(err, nil))
		}
		chain = append(chain, fromStorageRecord(record))
		next = record.ParentID
	}
	return chain, nil
}

// CreateIndex builds the approximate nearest neighbour index on backends that support one.
func (c *Client) CreateIndex(ctx context.Context, config *IndexConfig) error {
	if err := c.storage.CreateIndex(ctx, config); err != nil {
		return NewMemoryError("CreateIndex", classifyStoreError(err, nil))
	}
	return nil
}

// LLM returns the configured chat model, or nil when none is configured.
func (c *Client) LLM() llm.Provider {
	return c.llm
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *Config {
	return c.config
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Close closes storage, embedder and LLM, returning the first error.
func (c *Client) Close() error {
	var firstErr error
	if c.storage != nil {
		if err := c.storage.Close(); err != nil {
			firstErr = err
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// vectorSearch embeds query and ranks by similarity. An embedding failure
// yields no records and no error.
func (c *Client) vectorSearch(ctx context.Context, query string, opts *SearchOptions) ([]*storage.Record, error) {
	embedding, err := c.embed(ctx, query)
	if err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			return nil, err
		}
		c.logger.Warn("query embedding failed, returning no results", "user_id", opts.UserID, "error", err)
		return []*storage.Record{}, nil
	}

	records, err := c.storage.Search(ctx, embedding, &storage.SearchOptions{
		UserID: opts.UserID,
		Limit:  opts.Limit,
		Query:  query,
	})
	if err != nil {
		return nil, classifyStoreError(err, nil)
	}
	return records, nil
}

// embed returns the vector for text. NewClient guarantees the embedder's
// dimension equals the deployment dimension.
func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	vector, err := embedder.EmbedOne(ctx, c.embedder, text)
	switch {
	case err == nil:
		return vector, nil
	case errors.Is(err, ErrDimensionMismatch):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
}

func validateWrite(userID, content string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if content == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}
	return nil
}

func normalizeCategory(c Category) (Category, error) {
	if c == "" {
		return CategoryFact, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("%w: category %q", ErrInvalidInput, c)
	}
	return c, nil
}

func initStorage(cfg VectorStoreConfig, dims int) (storage.VectorStore, error) {
	switch cfg.Provider {
	case "oceanbase":
		return oceanbase.NewClient(&oceanbase.Config{
			Host:               cfg.Host,
			Port:               cfg.Port,
			User:               cfg.User,
			Password:           cfg.Password,
			DBName:             cfg.DBName,
			CollectionName:     cfg.CollectionName,
			EmbeddingModelDims: dims,
		})
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:             cfg.DBPath,
			CollectionName:     cfg.CollectionName,
			EmbeddingModelDims: dims,
		})
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgresStore.NewClient(&postgresStore.Config{
			Host:               cfg.Host,
			Port:               cfg.Port,
			User:               cfg.User,
			Password:           cfg.Password,
			DBName:             cfg.DBName,
			CollectionName:     cfg.CollectionName,
			EmbeddingModelDims: dims,
			SSLMode:            sslMode,
		})
	case "chromem":
		return chromemStore.NewClient(&chromemStore.Config{
			EmbeddingModelDims: dims,
		})
	default:
		return nil, NewMemoryError("initStorage", ErrInvalidConfig)
	}
}

func initLLM(cfg LLMConfig) (llm.Provider, error) {
	var (
		provider llm.Provider
		err      error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai", "deepseek", "qwen":
		c := openaiLLM.Preset(cfg.Provider, openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		provider, err = openaiLLM.NewClient(&c)
	case "anthropic":
		provider, err = anthropicLLM.NewClient(&anthropicLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "gemini":
		provider, err = geminiLLM.NewClient(context.Background(), &geminiLLM.Config{
			APIKey:   cfg.APIKey,
			Project:  cfg.Project,
			Location: cfg.Location,
			Model:    cfg.Model,
		})
	case "ollama":
		provider, err = ollamaLLM.NewClient(&ollamaLLM.Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewMemoryError("initLLM", ErrInvalidConfig)
	}
	if err != nil {
		return nil, NewMemoryError("initLLM", fmt.Errorf("%w: %w", ErrLLMOperation, err))
	}
	return provider, nil
}

func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	var (
		provider embedder.Provider
		err      error
	)
	switch cfg.Provider {
	case "openai":
		provider, err = openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "qwen":
		provider, err = qwenEmbedder.NewClient(&qwenEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "gemini":
		provider, err = geminiEmbedder.NewClient(context.Background(), &geminiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Project:    cfg.Project,
			Location:   cfg.Location,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "ollama":
		provider, err = ollamaEmbedder.NewClient(&ollamaEmbedder.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "mock":
		provider = mockEmbedder.New(cfg.Dimensions)
	default:
		return nil, NewMemoryError("initEmbedder", ErrInvalidConfig)
	}
	if err != nil {
		return nil, NewMemoryError("initEmbedder", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return provider, nil
}
