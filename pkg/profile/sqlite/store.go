// Package sqlite implements profile.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/profile"
)

// Store is a SQLite-backed profile store.
type Store struct {
	db *sql.DB

	tableName string
}

// Config contains configuration for the SQLite profile store.
type Config struct {
	// DBPath may be shared with the memory store.
	DBPath string

	// TableName defaults to "user_profiles".
	TableName string
}

// NewStore opens the database and creates the table if needed.
func NewStore(cfg *Config) (*Store, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "user_profiles"
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:        db,
		tableName: tableName,
	}

	if err := store.initTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Save upserts the profile. CreatedAt is kept on replace.
func (s *Store) Save(ctx context.Context, userID string, p core.Profile) error {
	if userID == "" {
		return fmt.Errorf("save profile: %w", core.ErrInvalidInput)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("save profile: %w: timezone %q", core.ErrInvalidInput, p.Timezone)
		}
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, name, language, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			language = excluded.language,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, userID, p.Name, p.Language, p.Timezone, now, now); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Get returns the profile for userID.
func (s *Store) Get(ctx context.Context, userID string) (*profile.Record, error) {
	query := fmt.Sprintf(`
		SELECT user_id, name, language, timezone, created_at, updated_at
		FROM %s
		WHERE user_id = ?
	`, s.tableName)

	var rec profile.Record
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.Profile.Name,
		&rec.Profile.Language,
		&rec.Profile.Timezone,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
