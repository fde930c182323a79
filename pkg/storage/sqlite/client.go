// Package sqlite provides SQLite implementation for vector storage.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-node deployments. Vectors are stored as JSON strings in TEXT fields,
// and similarity is computed in Go after loading the user's active rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// Client implements VectorStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// collectionName is the name of the table storing memories.
	collectionName string

	// dimensions is the dimension of embedding vectors.
	dimensions int
}

// Config contains configuration for creating a SQLite VectorStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the name of the table to use.
	CollectionName string

	// EmbeddingModelDims is the dimension of embedding vectors.
	EmbeddingModelDims int
}

// NewClient opens (or creates) the database file and its tables.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, storage.Unavailable("NewSQLiteClient", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("NewSQLiteClient", err)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "memories"
	}

	client := &Client{
		db:             db,
		collectionName: collection,
		dimensions:     cfg.EmbeddingModelDims,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	stored, err := client.storedDimensions(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := storage.CheckDimensions("NewSQLiteClient", stored, client.dimensions); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// storedDimensions returns the length of an existing embedding, or 0 for an
// empty table. Every row is written at one dimension, so any row will do.
func (c *Client) storedDimensions(ctx context.Context) (int, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT embedding FROM %s LIMIT 1`, c.collectionName)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Wrap("storedDimensions", err)
	}
	var embedding []float64
	if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
		return 0, fmt.Errorf("storedDimensions: %w", err)
	}
	return len(embedding), nil
}

// initTables creates the memory table and its (user_id, deleted) index.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			fact TEXT NOT NULL,
			embedding TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'fact',
			parent_id INTEGER REFERENCES %[1]s(id),
			edge_type TEXT,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return storage.Wrap("initTables", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_deleted ON %[1]s(user_id, deleted)`, c.collectionName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_parent ON %[1]s(parent_id)`, c.collectionName),
	}
	for _, q := range indexes {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return storage.Wrap("initTables", err)
		}
	}

	return nil
}

// Insert writes a root record.
func (c *Client) Insert(ctx context.Context, record *storage.Record) error {
	if err := c.insert(ctx, c.db, record); err != nil {
		return storage.Wrap("Insert", err)
	}
	return nil
}

func (c *Client) insert(ctx context.Context, q storage.Querier, record *storage.Record) error {
	if c.dimensions > 0 && len(record.Embedding) != c.dimensions {
		return storage.DimensionMismatch(len(record.Embedding), c.dimensions)
	}

	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, fact, embedding, category, parent_id, edge_type, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, c.collectionName)

	_, err = q.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Fact,
		string(embeddingJSON),
		record.Category,
		storage.NullableID(record.ParentID),
		storage.NullableString(record.EdgeType),
		record.CreatedAt.UTC(),
	)
	return err
}

// Supersede deletes the parent and inserts child in one transaction.
func (c *Client) Supersede(ctx context.Context, userID string, parentID int64, child *storage.Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("Supersede", err)
	}
	defer storage.Rollback(tx)

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted = 1 WHERE id = ? AND user_id = ? AND deleted = 0`, c.collectionName),
		parentID, userID,
	)
	if err != nil {
		return storage.Wrap("Supersede: delete parent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("Supersede: delete parent", err)
	}
	if n != 1 {
		return fmt.Errorf("Supersede: %w", storage.ErrParentUnavailable)
	}

	child.ParentID = &parentID
	if err := c.insert(ctx, tx, child); err != nil {
		return storage.Wrap("Supersede: insert child", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Wrap("Supersede: commit", err)
	}
	return nil
}

// SoftDelete flips deleted for the user's active records among ids in a
// single UPDATE ... RETURNING statement.
func (c *Client) SoftDelete(ctx context.Context, userID string, ids []int64) ([]int64, error) {
	deleted := []int64{}
	if len(ids) == 0 {
		return deleted, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`
		UPDATE %s SET deleted = 1
		WHERE user_id = ? AND deleted = 0 AND id IN (%s)
		RETURNING id
	`, c.collectionName, placeholders)

	rows, err := c.db.QueryContext(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, storage.Wrap("SoftDelete", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storage.Wrap("SoftDelete", err)
		}
		deleted = append(deleted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("SoftDelete", err)
	}

	return deleted, nil
}

// Search scores every active record of the user against embedding.
//
// SQLite has no vector operators, so similarity is calculated in memory
// after loading the user's active rows via the (user_id, deleted) index.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ? AND deleted = 0`, columns, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query, opts.UserID)
	if err != nil {
		return nil, storage.Wrap("Search", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storage.Wrap("Search", err)
		}
		record.Score = storage.CosineSimilarity(embedding, record.Embedding)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("Search", err)
	}

	storage.SortByScore(records)
	return storage.Truncate(records, opts.EffectiveLimit()), nil
}

// KeywordSearch matches every query term with LIKE, most recent first.
func (c *Client) KeywordSearch(ctx context.Context, opts *storage.SearchOptions) ([]*storage.Record, error) {
	kq := storage.ParseKeywordQuery(opts.Query)
	if kq.Empty() {
		return nil, nil
	}

	conditions := []string{"user_id = ?", "deleted = 0"}
	args := []any{opts.UserID}
	for _, t := range kq.Include {
		conditions = append(conditions, `fact LIKE ? ESCAPE '\'`)
		args = append(args, "%"+storage.EscapeLike(t)+"%")
	}
	for _, t := range kq.Exclude {
		conditions = append(conditions, `fact NOT LIKE ? ESCAPE '\'`)
		args = append(args, "%"+storage.EscapeLike(t)+"%")
	}
	args = append(args, opts.EffectiveLimit())

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, columns, c.collectionName, strings.Join(conditions, " AND "))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Wrap("KeywordSearch", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storage.Wrap("KeywordSearch", err)
		}
		record.Score = 1
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("KeywordSearch", err)
	}
	return records, nil
}

// Get retrieves a record by ID, including deleted ones.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, c.collectionName)
	args := []any{id}
	if opts != nil && opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("Get", err)
	}
	return record, nil
}

// CreateIndex is a no-op: SQLite ranks with a scan over the user's rows.
func (c *Client) CreateIndex(ctx context.Context, config *storage.IndexConfig) error {
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
