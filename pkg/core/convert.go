package core

import (
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// toStorageRecord converts a core.MemoryRecord to storage.Record.
func toStorageRecord(m *MemoryRecord) *storage.Record {
	return &storage.Record{
		ID:        m.ID,
		UserID:    m.UserID,
		Fact:      m.Fact,
		Embedding: m.Embedding,
		Category:  string(m.Category),
		ParentID:  m.ParentID,
		EdgeType:  string(m.EdgeType),
		Deleted:   m.Deleted,
		CreatedAt: m.CreatedAt,
	}
}

// fromStorageRecord converts a storage.Record to core.MemoryRecord.
func fromStorageRecord(r *storage.Record) *MemoryRecord {
	return &MemoryRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		Fact:      r.Fact,
		Embedding: r.Embedding,
		Category:  Category(r.Category),
		ParentID:  r.ParentID,
		EdgeType:  EdgeType(r.EdgeType),
		Deleted:   r.Deleted,
		CreatedAt: r.CreatedAt,
	}
}

// toSearchHits converts scored storage rows into hits, preserving order.
func toSearchHits(records []*storage.Record) []*SearchHit {
	hits := make([]*SearchHit, len(records))
	for i, r := range records {
		hits[i] = &SearchHit{
			Record: fromStorageRecord(r),
			Score:  r.Score,
		}
	}
	return hits
}
