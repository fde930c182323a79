// Package core provides the remind client: a versioned, embedding-indexed
// store of facts about a user.
package core

import (
	"strings"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// Category classifies what kind of information a memory holds.
type Category string

const (
	// CategoryFact covers user preferences, account details and domain facts.
	CategoryFact Category = "fact"

	// CategoryEpisode covers summaries of past interactions or completed tasks.
	CategoryEpisode Category = "episode"

	// CategorySemantic covers relationships between concepts.
	CategorySemantic Category = "semantic"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFact, CategoryEpisode, CategorySemantic:
		return true
	}
	return false
}

// ParseCategory normalizes s into a Category. Empty input yields CategoryFact.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryFact, nil
	}
	if !c.Valid() {
		return "", NewMemoryError("ParseCategory", ErrInvalidInput)
	}
	return c, nil
}

// EdgeType describes how a child record relates to the parent it supersedes.
type EdgeType string

const (
	// EdgeReplace means the child fully replaces the parent.
	EdgeReplace EdgeType = "replace"

	// EdgeExtend means the child enriches the parent without contradicting it.
	EdgeExtend EdgeType = "extend"
)

// Valid reports whether e is replace or extend.
func (e EdgeType) Valid() bool {
	return e == EdgeReplace || e == EdgeExtend
}

// MemoryRecord is a single versioned fact owned by one user.
//
// A record is immutable once written, except for Deleted, which only ever
// moves from false to true. Records created by Update carry ParentID and
// EdgeType; the parent is deleted in the same transaction.
//
// Example:
//
//	record, _ := client.Add(ctx, "User likes coffee", core.CategoryFact,
//	    core.WithUserID("user_001"))
//	fmt.Println(record.ID, record.Fact)
type MemoryRecord struct {
	// ID is the time-ordered identifier assigned at creation.
	ID int64 `json:"id"`

	// UserID identifies the owner.
	UserID string `json:"user_id"`

	// Fact is the atomic natural-language statement.
	Fact string `json:"fact"`

	// Embedding is the vector for Fact. Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"-"`

	// Category classifies the record.
	Category Category `json:"category"`

	// ParentID is the record this one superseded, nil for records created by Add.
	ParentID *int64 `json:"parent_id,omitempty"`

	// EdgeType is set only when ParentID is set.
	EdgeType EdgeType `json:"edge_type,omitempty"`

	// Deleted is the soft-delete flag.
	Deleted bool `json:"deleted"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// SearchHit pairs a record with its similarity to a query.
type SearchHit struct {
	// Record is the matching memory.
	Record *MemoryRecord `json:"record"`

	// Score is 1 - cosine distance to the query, higher is closer.
	Score float64 `json:"similarity"`
}

// DeleteResult lists the records a Delete call actually flipped.
type DeleteResult struct {
	// DeletedIDs is empty when nothing qualified.
	DeletedIDs []int64 `json:"deleted_ids"`
}

// Profile carries per-user context used when prompting a language model.
type Profile struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// IndexConfig describes the ANN index built over embeddings.
type IndexConfig = storage.IndexConfig

const (
	IndexTypeHNSW    = storage.IndexTypeHNSW
	IndexTypeIVFFlat = storage.IndexTypeIVFFlat
)
