package postgres

import (
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

const columns = `id, user_id, fact, embedding, category, parent_id, edge_type, deleted, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row; withScore expects a trailing similarity column.
func scanRecord(row rowScanner, withScore bool) (*storage.Record, error) {
	var (
		record    storage.Record
		embedding pgvector.Vector
		parentID  sql.NullInt64
		edgeType  sql.NullString
	)

	dest := []any{
		&record.ID,
		&record.UserID,
		&record.Fact,
		&embedding,
		&record.Category,
		&parentID,
		&edgeType,
		&record.Deleted,
		&record.CreatedAt,
	}
	if withScore {
		dest = append(dest, &record.Score)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	values := embedding.Slice()
	record.Embedding = make([]float64, len(values))
	for i, v := range values {
		record.Embedding[i] = float64(v)
	}
	record.ParentID = storage.FromNullInt64(parentID)
	record.EdgeType = edgeType.String
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

// scanRecords drains rows and closes them.
func scanRecords(rows *sql.Rows, withScore bool) ([]*storage.Record, error) {
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows, withScore)
		if err != nil {
			return nil, storage.Wrap("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("scan", err)
	}
	return records, nil
}
