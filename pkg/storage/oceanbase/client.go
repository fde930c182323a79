// Package oceanbase provides an OceanBase implementation of the vector store
// over the MySQL protocol, using the native VECTOR type and cosine_distance.
package oceanbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// Client is an OceanBase client.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains OceanBase configuration.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
}

// DSN renders the go-sql-driver/mysql connection string.
func (cfg *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewClient creates a new OceanBase client.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, storage.Unavailable("NewOceanBaseClient", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("NewOceanBaseClient", err)
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
	if err := storage.CheckDimensions("NewOceanBaseClient", stored, client.dimensions); err != nil {
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
		SELECT COLUMN_TYPE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = 'embedding'
	`, c.collectionName).Scan(&columnType)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Wrap("storedDimensions", err)
	}
	return storage.ParseVectorDims(columnType), nil
}

// initTables creates the memory table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			fact TEXT NOT NULL,
			embedding VECTOR(%[2]d) NOT NULL,
			category VARCHAR(32) NOT NULL DEFAULT 'fact',
			parent_id BIGINT NULL,
			edge_type VARCHAR(16) NULL,
			deleted TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_%[1]s_user_deleted (user_id, deleted),
			INDEX idx_%[1]s_parent (parent_id)
		)
	`, c.collectionName, c.dimensions)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return storage.Wrap("initTables", err)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, c.collectionName)

	_, err := q.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Fact,
		vectorToString(record.Embedding),
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

// SoftDelete flips deleted for the user's active records among ids.
// MySQL has no UPDATE ... RETURNING, so the qualifying rows are locked and
// read first inside the same transaction.
func (c *Client) SoftDelete(ctx context.Context, userID string, ids []int64) ([]int64, error) {
	deleted := []int64{}
	if len(ids) == 0 {
		return deleted, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Unavailable("SoftDelete", err)
	}
	defer storage.Rollback(tx)

	placeholders, idArgs := inClause(ids)
	args := append([]any{userID}, idArgs...)

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s
		WHERE user_id = ? AND deleted = 0 AND id IN (%s)
		FOR UPDATE
	`, c.collectionName, placeholders), args...)
	if err != nil {
		return nil, storage.Wrap("SoftDelete", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, storage.Wrap("SoftDelete", err)
		}
		deleted = append(deleted, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("SoftDelete", err)
	}
	if len(deleted) == 0 {
		return deleted, nil
	}

	placeholders, idArgs = inClause(deleted)
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted = 1 WHERE id IN (%s)`, c.collectionName, placeholders),
		idArgs...,
	); err != nil {
		return nil, storage.Wrap("SoftDelete", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Wrap("SoftDelete: commit", err)
	}
	return deleted, nil
}

// Search ranks active records with OceanBase's cosine_distance.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s, cosine_distance(embedding, ?) AS distance
		FROM %s
		WHERE user_id = ? AND deleted = 0
		ORDER BY distance ASC, created_at DESC, id DESC
		LIMIT ?
	`, columns, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query, vectorToString(embedding), opts.UserID, opts.EffectiveLimit())
	if err != nil {
		return nil, storage.Wrap("Search", err)
	}
	return scanRecords(rows, func(r *storage.Record, distance float64) { r.Score = 1 - distance })
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
		conditions = append(conditions, "LOWER(fact) LIKE ?")
		args = append(args, "%"+storage.EscapeLike(t)+"%")
	}
	for _, t := range kq.Exclude {
		conditions = append(conditions, "LOWER(fact) NOT LIKE ?")
		args = append(args, "%"+storage.EscapeLike(t)+"%")
	}
	args = append(args, opts.EffectiveLimit())

	query := fmt.Sprintf(`
		SELECT %s, 0 AS distance
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, columns, c.collectionName, strings.Join(conditions, " AND "))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Wrap("KeywordSearch", err)
	}
	return scanRecords(rows, func(r *storage.Record, _ float64) { r.Score = 1 })
}

// Get retrieves a record by ID, including deleted ones.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s, 0 AS distance FROM %s WHERE id = ?`, columns, c.collectionName)
	args := []any{id}
	if opts != nil && opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}

	record, _, err := scanRecord(c.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("Get", err)
	}
	return record, nil
}

// CreateIndex builds an HNSW or IVF_FLAT vector index using cosine distance.
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
			ef = 200
		}
		query = fmt.Sprintf(`
			CREATE VECTOR INDEX %s ON %s (embedding) WITH (
				distance = cosine,
				type = hnsw,
				lib = vsag,
				m = %d,
				ef_construction = %d
			)`, name, c.collectionName, m, ef)
	case storage.IndexTypeIVFFlat:
		lists := config.Lists
		if lists <= 0 {
			lists = 128
		}
		query = fmt.Sprintf(`
			CREATE VECTOR INDEX %s ON %s (embedding) WITH (
				distance = cosine,
				type = ivf_flat,
				nlist = %d
			)`, name, c.collectionName, lists)
	default:
		return fmt.Errorf("CreateIndex: invalid index type: %s", config.IndexType)
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
