package sqlite

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

const columns = `id, user_id, fact, embedding, category, parent_id, edge_type, deleted, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row selected with columns.
func scanRecord(row rowScanner) (*storage.Record, error) {
	var (
		record        storage.Record
		embeddingJSON string
		parentID      sql.NullInt64
		edgeType      sql.NullString
		createdAt     time.Time
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Fact,
		&embeddingJSON,
		&record.Category,
		&parentID,
		&edgeType,
		&record.Deleted,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(embeddingJSON), &record.Embedding); err != nil {
		return nil, err
	}
	record.ParentID = storage.FromNullInt64(parentID)
	record.EdgeType = edgeType.String
	record.CreatedAt = createdAt.UTC()

	return &record, nil
}

// inClause builds "?, ?, ?" and its arguments for ids.
func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
