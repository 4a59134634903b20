package ast

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists module index snapshots in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens/creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS modules (
		short_name TEXT NOT NULL,
		full_name TEXT NOT NULL UNIQUE,
		ordinal INTEGER NOT NULL,
		PRIMARY KEY (short_name, full_name)
	);
	CREATE TABLE IF NOT EXISTS index_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		module_count INTEGER NOT NULL,
		short_name_count INTEGER NOT NULL,
		last_built TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveIndex replaces the stored snapshot in a single transaction.
func (s *SQLiteStore) SaveIndex(index *ModuleIndex, meta CacheMetadata) error {
	if index == nil {
		return errors.New("index required")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM modules`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO modules (short_name, full_name, ordinal) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	entries := index.Entries()
	shorts := make([]string, 0, len(entries))
	for short := range entries {
		shorts = append(shorts, short)
	}
	sort.Strings(shorts)
	for _, short := range shorts {
		for ordinal, full := range entries[short] {
			if _, err := stmt.Exec(short, full, ordinal); err != nil {
				return fmt.Errorf("save module %s: %w", full, err)
			}
		}
	}
	_, err = tx.Exec(`
	INSERT INTO index_meta (id, module_count, short_name_count, last_built) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		module_count=excluded.module_count,
		short_name_count=excluded.short_name_count,
		last_built=excluded.last_built`,
		meta.ModuleCount, meta.ShortNameCount, meta.LastBuilt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LoadIndex reads the stored snapshot.
func (s *SQLiteStore) LoadIndex() (*ModuleIndex, CacheMetadata, error) {
	var meta CacheMetadata
	var built string
	row := s.db.QueryRow(`SELECT module_count, short_name_count, last_built FROM index_meta WHERE id = 1`)
	if err := row.Scan(&meta.ModuleCount, &meta.ShortNameCount, &built); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, CacheMetadata{}, ErrNoSnapshot
		}
		return nil, CacheMetadata{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, built)
	if err != nil {
		return nil, CacheMetadata{}, fmt.Errorf("parse last_built: %w", err)
	}
	meta.LastBuilt = ts

	rows, err := s.db.Query(`SELECT full_name FROM modules ORDER BY short_name, ordinal`)
	if err != nil {
		return nil, CacheMetadata{}, err
	}
	defer rows.Close()
	builder := NewModuleIndexBuilder()
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return nil, CacheMetadata{}, err
		}
		builder.Add(full)
	}
	if err := rows.Err(); err != nil {
		return nil, CacheMetadata{}, err
	}
	return builder.Build(), meta, nil
}
