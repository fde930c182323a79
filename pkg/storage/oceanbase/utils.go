package oceanbase

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

const columns = `id, user_id, fact, embedding, category, parent_id, edge_type, deleted, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// vectorToString converts a float64 slice to an OceanBase VECTOR literal.
// Example: [0.1, 0.2, 0.3] -> "[0.1,0.2,0.3]"
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 32)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// stringToVector parses an OceanBase VECTOR literal.
func stringToVector(s string) ([]float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}

	return result, nil
}

// scanRecord reads one row selected with columns plus a trailing distance.
func scanRecord(row rowScanner) (*storage.Record, float64, error) {
	var (
		record    storage.Record
		embedding string
		parentID  sql.NullInt64
		edgeType  sql.NullString
		distance  float64
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Fact,
		&embedding,
		&record.Category,
		&parentID,
		&edgeType,
		&record.Deleted,
		&record.CreatedAt,
		&distance,
	)
	if err != nil {
		return nil, 0, err
	}

	record.Embedding, err = stringToVector(embedding)
	if err != nil {
		return nil, 0, err
	}
	record.ParentID = storage.FromNullInt64(parentID)
	record.EdgeType = edgeType.String
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, distance, nil
}

// scanRecords drains rows, letting score set Score from the distance column.
func scanRecords(rows *sql.Rows, score func(*storage.Record, float64)) ([]*storage.Record, error) {
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, distance, err := scanRecord(rows)
		if err != nil {
			return nil, storage.Wrap("scan", err)
		}
		score(record, distance)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("scan", err)
	}
	return records, nil
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
