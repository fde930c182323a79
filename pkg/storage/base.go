// Package storage provides the contract shared by vector storage backends.
//
// Every backend keeps one append-mostly table of memory records indexed by
// (user_id, deleted), exposes transactional supersession and soft deletion,
// and never removes a row.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/embedder"
)

var (
	// ErrNotFound is returned by Get when no row matches.
	ErrNotFound = errors.New("record not found")

	// ErrParentUnavailable is returned by Supersede when the parent is
	// missing, already deleted or owned by another user.
	ErrParentUnavailable = errors.New("parent not found or already deleted")

	// ErrUnavailable marks failures to reach the database or start a transaction.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrDimensionMismatch marks a vector or an existing table whose
	// dimension differs from the configured one.
	ErrDimensionMismatch = embedder.ErrDimensionMismatch
)

// Record is the row shape every backend reads and writes.
//
// This type lives in the storage package to avoid circular dependencies
// with the core package, which converts it to core.MemoryRecord.
type Record struct {
	// ID is the primary key, assigned by the caller.
	ID int64

	// UserID identifies the owner.
	UserID string

	// Fact is the statement text.
	Fact string

	// Embedding is the fixed-dimension vector for Fact.
	Embedding []float64

	// Category is fact, episode or semantic.
	Category string

	// ParentID is the superseded record, nil for roots.
	ParentID *int64

	// EdgeType is replace or extend when ParentID is set.
	EdgeType string

	// Deleted is the soft-delete flag.
	Deleted bool

	// CreatedAt is when the row was inserted.
	CreatedAt time.Time

	// Score is the similarity from search operations.
	Score float64
}

// VectorStore defines the interface for vector storage backends.
//
// All storage implementations (SQLite, PostgreSQL, OceanBase, chromem) must implement this interface.
type VectorStore interface {
	// Insert writes a new root record.
	Insert(ctx context.Context, record *Record) error

	// Supersede marks parentID deleted and inserts child in one transaction.
	// It returns ErrParentUnavailable (wrapped) when the parent does not
	// qualify, in which case nothing is written.
	Supersede(ctx context.Context, userID string, parentID int64, child *Record) error

	// SoftDelete flags every listed active record owned by userID and
	// returns the ids it flipped. Unknown ids are ignored.
	SoftDelete(ctx context.Context, userID string, ids []int64) ([]int64, error)

	// Search ranks the user's active records by cosine similarity, breaking
	// ties by creation time, most recent first.
	Search(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Record, error)

	// KeywordSearch returns the user's active records whose fact matches
	// opts.Query, most recent first, with Score set to 1.
	KeywordSearch(ctx context.Context, opts *SearchOptions) ([]*Record, error)

	// Get retrieves a record by ID, deleted or not.
	Get(ctx context.Context, id int64, opts *GetOptions) (*Record, error)

	// CreateIndex builds the approximate nearest neighbour index over embeddings.
	CreateIndex(ctx context.Context, config *IndexConfig) error

	// Close closes the store and releases resources.
	Close() error
}

// SearchOptions contains options for search operations.
type SearchOptions struct {
	// UserID scopes the search. Required.
	UserID string

	// Limit sets the maximum number of results to return.
	Limit int

	// Query is the raw text for keyword search.
	Query string
}

// GetOptions contains options for get operations with access control.
type GetOptions struct {
	// UserID restricts access to records belonging to this user.
	UserID string
}

// IndexType defines the approximate nearest neighbour structure.
type IndexType string

const (
	// IndexTypeHNSW uses Hierarchical Navigable Small World graphs.
	IndexTypeHNSW IndexType = "HNSW"

	// IndexTypeIVFFlat uses an inverted file index with flat vectors.
	IndexTypeIVFFlat IndexType = "IVF_FLAT"
)

// IndexConfig contains configuration for creating a vector index.
type IndexConfig struct {
	// IndexName defaults to idx_<collection>_embedding.
	IndexName string

	// IndexType selects HNSW or IVF_FLAT.
	IndexType IndexType

	// M is the maximum number of connections per HNSW node.
	M int

	// EfConstruction is the HNSW build-time search depth.
	EfConstruction int

	// Lists is the number of IVF clusters.
	Lists int
}

// DefaultLimit is used when SearchOptions.Limit is not positive.
const DefaultLimit = 10

// EffectiveLimit returns opts.Limit or DefaultLimit.
func (o *SearchOptions) EffectiveLimit() int {
	if o == nil || o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}
