// Package postgres provides a PostgreSQL + pgvector implementation of the
// vector store. Similarity is computed by the database as 1 - (embedding <=> query).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// Client is a PostgreSQL + pgvector client.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
	SSLMode            string
}

// DSN renders the lib/pq connection string.
func (cfg *Config) DSN() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, storage.Unavailable("NewPostgresClient", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("NewPostgresClient", err)
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
	if err := storage.CheckDimensions("NewPostgresClient", stored, client.dimensions); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// storedDimensions reads the declared size of the embedding column, which
// CREATE TABLE IF NOT EXISTS leaves untouched on an existing table.
func (c *Client) storedDimensions(ctx context.Context) (int, error) {
	var columnType string
	err := c.db.QueryRowContext(ctx, `
		SELECT format_type(atttypid, atttypmod)
		FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding' AND NOT attisdropped
	`, c.collectionName).Scan(&columnType)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Wrap("storedDimensions", err)
	}
	return storage.ParseVectorDims(columnType), nil
}

// initTables enables pgvector and creates the table with its scan and
// full-text indexes.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return storage.Wrap("initTables: create extension", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			fact TEXT NOT NULL,
			embedding vector(%[2]d) NOT NULL,
			category VARCHAR(32) NOT NULL DEFAULT 'fact',
			parent_id BIGINT REFERENCES %[1]s(id),
			edge_type VARCHAR(16),
			deleted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT %[1]s_edge_requires_parent CHECK (edge_type IS NULL OR parent_id IS NOT NULL)
		)
	`, c.collectionName, c.dimensions)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return storage.Wrap("initTables: create table", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_deleted ON %[1]s(user_id, deleted)`, c.collectionName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_parent ON %[1]s(parent_id)`, c.collectionName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_fact_fts ON %[1]s USING gin (to_tsvector('english', fact))`, c.collectionName),
	}
	for _, q := range indexes {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return storage.Wrap("initTables: create index", err)
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
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, fact, embedding, category, parent_id, edge_type, deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, c.collectionName)

	_, err := q.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Fact,
		toVector(record.Embedding),
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

	var deletedID int64
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted = true WHERE id = $1 AND user_id = $2 AND deleted = false RETURNING id`, c.collectionName),
		parentID, userID,
	).Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("Supersede: %w", storage.ErrParentUnavailable)
	}
	if err != nil {
		return storage.Wrap("Supersede: delete parent", err)
	}

	child.ParentID = &deletedID
	if err := c.insert(ctx, tx, child); err != nil {
		return storage.Wrap("Supersede: insert child", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Wrap("Supersede: commit", err)
	}
	return nil
}

// SoftDelete flips deleted for the user's active records among ids.
func (c *Client) SoftDelete(ctx context.Context, userID string, ids []int64) ([]int64, error) {
	deleted := []int64{}
	if len(ids) == 0 {
		return deleted, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET deleted = true
		WHERE user_id = $1 AND deleted = false AND id = ANY($2)
		RETURNING id
	`, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query, userID, pq.Array(ids))
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

// Search ranks active records with the pgvector cosine operator. Ordering on
// the distance expression lets the planner use an HNSW or IVFFlat index.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE user_id = $2 AND deleted = false
		ORDER BY embedding <=> $1, created_at DESC, id DESC
		LIMIT $3
	`, columns, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query, toVector(embedding), opts.UserID, opts.EffectiveLimit())
	if err != nil {
		return nil, storage.Wrap("Search", err)
	}
	return scanRecords(rows, true)
}

// KeywordSearch uses PostgreSQL full-text search with websearch syntax.
func (c *Client) KeywordSearch(ctx context.Context, opts *storage.SearchOptions) ([]*storage.Record, error) {
	if storage.ParseKeywordQuery(opts.Query).Empty() {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, 1::float8 AS similarity
		FROM %s
		WHERE user_id = $1 AND deleted = false
		  AND to_tsvector('english', fact) @@ websearch_to_tsquery('english', $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, columns, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query, opts.UserID, opts.Query, opts.EffectiveLimit())
	if err != nil {
		return nil, storage.Wrap("KeywordSearch", err)
	}
	return scanRecords(rows, true)
}

// Get retrieves a record by ID, including deleted ones.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, c.collectionName)
	args := []any{id}
	if opts != nil && opts.UserID != "" {
		query += " AND user_id = $2"
		args = append(args, opts.UserID)
	}

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, args...), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("Get", err)
	}
	return record, nil
}

// CreateIndex builds an HNSW or IVFFlat index with cosine operators.
func (c *Client) CreateIndex(ctx context.Context, config *storage.IndexConfig) error {
	name := config.IndexName
	if name == "" {
		name = fmt.Sprintf("idx_%s_embedding", c.collectionName)
	}

	var query string
	switch config.IndexType {
	case storage.IndexTypeHNSW, "":
		m, ef := config.M, config.EfConstruction
		if m <= 0 {
			m = 16
		}
		if ef <= 0 {
			ef = 64
		}
		query = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING hnsw (embedding vector_cosine_ops)
			WITH (m = %d, ef_construction = %d)
		`, name, c.collectionName, m, ef)
	case storage.IndexTypeIVFFlat:
		lists := config.Lists
		if lists <= 0 {
			lists = 100
		}
		query = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)
		`, name, c.collectionName, lists)
	default:
		return fmt.Errorf("CreateIndex: unsupported index type: %s", config.IndexType)
	}

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return storage.Wrap("CreateIndex", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// toVector converts an embedding to the pgvector wire type.
func toVector(embedding []float64) pgvector.Vector {
	v := make([]float32, len(embedding))
	for i, x := range embedding {
		v[i] = float32(x)
	}
	return pgvector.NewVector(v)
}
