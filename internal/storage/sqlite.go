package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/vecsearch/internal/metadata"
)

// SQLiteStorage implements MetadataStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		ordinal INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		views INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_entries_title ON entries(title COLLATE NOCASE);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceEntries rewrites the table inside one transaction.
func (s *SQLiteStorage) ReplaceEntries(ctx context.Context, entries []metadata.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (ordinal, title, link, views) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.Title, e.Link, e.Views); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetEntry returns the entry at ordinal.
func (s *SQLiteStorage) GetEntry(ctx context.Context, ordinal int) (metadata.Entry, error) {
	var e metadata.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT title, link, views FROM entries WHERE ordinal = ?`, ordinal,
	).Scan(&e.Title, &e.Link, &e.Views)
	if errors.Is(err, sql.ErrNoRows) {
		return metadata.Entry{}, fmt.Errorf("%w: %d", metadata.ErrUnknownOrdinal, ordinal)
	}
	return e, err
}

// LoadTable reads all entries. Ordinals must be contiguous from zero.
func (s *SQLiteStorage) LoadTable(ctx context.Context) (*metadata.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ordinal, title, link, views FROM entries ORDER BY ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []metadata.Entry
	for rows.Next() {
		var (
			ordinal int
			e       metadata.Entry
		)
		if err := rows.Scan(&ordinal, &e.Title, &e.Link, &e.Views); err != nil {
			return nil, err
		}
		if ordinal != len(entries) {
			return nil, fmt.Errorf("ordinal gap: found %d, want %d", ordinal, len(entries))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return metadata.NewTable(entries), nil
}

// CountEntries returns the number of stored entries.
func (s *SQLiteStorage) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

// SearchTitles returns distinct ordinals whose title starts with prefix.
func (s *SQLiteStorage) SearchTitles(ctx context.Context, prefix string, limit int) ([]int, error) {
	if limit <= 0 {
		limit = 10
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal FROM entries WHERE title LIKE ? ESCAPE '\' ORDER BY views DESC, ordinal LIMIT ?`,
		escaped+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var o int
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
