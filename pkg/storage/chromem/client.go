// Package chromem provides an in-process vector store backed by chromem-go.
//
// Records live in a map keyed by id, which is the audit table: nothing is
// ever removed from it. Active records are additionally indexed in one
// chromem collection per user; soft deletion removes the document from the
// collection so it can no longer be ranked. A single mutex makes
// supersession atomic.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

var errClosed = errors.New("chromem store closed")

// Client implements VectorStore on top of chromem-go.
type Client struct {
	mu          sync.RWMutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
	records     map[int64]*storage.Record
	dimensions  int
	closed      bool
}

// Config contains configuration for the chromem store.
type Config struct {
	// EmbeddingModelDims is the dimension of embedding vectors.
	EmbeddingModelDims int
}

// NewClient creates an empty in-process store.
func NewClient(cfg *Config) (*Client, error) {
	return &Client{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		records:     make(map[int64]*storage.Record),
		dimensions:  cfg.EmbeddingModelDims,
	}, nil
}

// collection returns the user's collection. Callers hold mu for writing.
func (c *Client) collection(userID string) (*chromem.Collection, error) {
	if col, ok := c.collections[userID]; ok {
		return col, nil
	}
	col, err := c.db.GetOrCreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	c.collections[userID] = col
	return col, nil
}

func (c *Client) add(ctx context.Context, record *storage.Record) error {
	if c.dimensions > 0 && len(record.Embedding) != c.dimensions {
		return storage.DimensionMismatch(len(record.Embedding), c.dimensions)
	}
	if _, exists := c.records[record.ID]; exists {
		return fmt.Errorf("duplicate id %d", record.ID)
	}

	col, err := c.collection(record.UserID)
	if err != nil {
		return err
	}
	err = col.AddDocument(ctx, chromem.Document{
		ID:        docID(record.ID),
		Content:   record.Fact,
		Embedding: toFloat32(record.Embedding),
		Metadata:  map[string]string{"category": record.Category},
	})
	if err != nil {
		return err
	}

	stored := *record
	stored.Deleted = false
	stored.Score = 0
	c.records[record.ID] = &stored
	return nil
}

// Insert writes a root record.
func (c *Client) Insert(ctx context.Context, record *storage.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return storage.Unavailable("Insert", errClosed)
	}
	if err := c.add(ctx, record); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// Supersede deletes the parent and inserts child while holding the write lock.
func (c *Client) Supersede(ctx context.Context, userID string, parentID int64, child *storage.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return storage.Unavailable("Supersede", errClosed)
	}

	parent, ok := c.records[parentID]
	if !ok || parent.Deleted || parent.UserID != userID {
		return fmt.Errorf("Supersede: %w", storage.ErrParentUnavailable)
	}

	child.ParentID = &parentID
	if err := c.add(ctx, child); err != nil {
		return fmt.Errorf("Supersede: insert child: %w", err)
	}
	if err := c.retire(ctx, parent); err != nil {
		c.unadd(ctx, child)
		return fmt.Errorf("Supersede: delete parent: %w", err)
	}
	return nil
}

// unadd reverses add for a record that never became visible to readers.
func (c *Client) unadd(ctx context.Context, record *storage.Record) {
	delete(c.records, record.ID)
	if col, ok := c.collections[record.UserID]; ok {
		_ = col.Delete(ctx, nil, nil, docID(record.ID))
	}
}

// retire drops the record from its collection and flags it deleted.
func (c *Client) retire(ctx context.Context, record *storage.Record) error {
	col, err := c.collection(record.UserID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, docID(record.ID)); err != nil {
		return err
	}
	record.Deleted = true
	return nil
}

// SoftDelete flips deleted for the user's active records among ids.
func (c *Client) SoftDelete(ctx context.Context, userID string, ids []int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, storage.Unavailable("SoftDelete", errClosed)
	}

	deleted := []int64{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		record, ok := c.records[id]
		if !ok || seen[id] || record.Deleted || record.UserID != userID {
			continue
		}
		seen[id] = true
		if err := c.retire(ctx, record); err != nil {
			return deleted, fmt.Errorf("SoftDelete: %w", err)
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// Search queries the user's collection and re-sorts with the recency tie-break.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, storage.Unavailable("Search", errClosed)
	}

	col, ok := c.collections[opts.UserID]
	if !ok || col.Count() == 0 {
		return nil, nil
	}

	// Ties at the cut-off must be broken by recency, so rank everything.
	results, err := col.QueryEmbedding(ctx, toFloat32(embedding), col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	records := make([]*storage.Record, 0, len(results))
	for _, res := range results {
		id, err := strconv.ParseInt(res.ID, 10, 64)
		if err != nil {
			continue
		}
		record, ok := c.records[id]
		if !ok || record.Deleted {
			continue
		}
		hit := *record
		hit.Score = float64(res.Similarity)
		records = append(records, &hit)
	}

	storage.SortByScore(records)
	return storage.Truncate(records, opts.EffectiveLimit()), nil
}

// KeywordSearch returns the user's active records containing every query
// term and none of the "-" excluded ones.
func (c *Client) KeywordSearch(ctx context.Context, opts *storage.SearchOptions) ([]*storage.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, storage.Unavailable("KeywordSearch", errClosed)
	}

	kq := storage.ParseKeywordQuery(opts.Query)
	var records []*storage.Record
	for _, record := range c.records {
		if record.UserID != opts.UserID || record.Deleted || !kq.Matches(record.Fact) {
			continue
		}
		hit := *record
		hit.Score = 1
		records = append(records, &hit)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return storage.Truncate(records, opts.EffectiveLimit()), nil
}

// Get retrieves a record by ID, including deleted ones.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, storage.Unavailable("Get", errClosed)
	}

	record, ok := c.records[id]
	if !ok || (opts != nil && opts.UserID != "" && record.UserID != opts.UserID) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	out := *record
	return &out, nil
}

// CreateIndex is a no-op: chromem performs exhaustive search in memory.
func (c *Client) CreateIndex(ctx context.Context, config *storage.IndexConfig) error {
	return nil
}

// Close marks the store closed. Later calls fail with ErrUnavailable.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
