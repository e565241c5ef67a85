// Package history keeps a local log of the questions asked to the dashboard, in a sqlite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Entry is a recorded question and the outcome it settled with.
type Entry struct {
	ID         int64     `json:"id"`
	Query      string    `json:"query"`
	View       string    `json:"view"`
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary,omitempty"`
	Confidence float64   `json:"confidence"`
	Rows       int       `json:"rows"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DefaultLimit is the number of entries returned by [Store.List] when no positive limit is given.
const DefaultLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS query_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	view TEXT NOT NULL,
	kind TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	rows INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_history_created ON query_history(created_at);
`

// Store is the history database.
type Store struct {
	db  *sql.DB
	l   *slog.Logger
	now func() time.Time
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("history: creating folder for %q: %w", path, err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening %q: %w", path, err)
	}

	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("history: creating schema: %w", err)
	}

	return &Store{
		db:  db,
		l:   slog.Default().With(slog.String("module", "history")),
		now: time.Now,
	}, nil
}

// Record appends an entry. The ID and CreatedAt of e are ignored.
func (s *Store) Record(ctx context.Context, e Entry) error {
	const insert = `INSERT INTO query_history (query, view, kind, summary, confidence, rows, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, insert,
		e.Query, e.View, e.Kind, e.Summary, e.Confidence, e.Rows, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: recording query: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		s.l.Debug("query recorded", slog.Int64("id", id), slog.String("view", e.View))
	}

	return nil
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	const query = `SELECT id, query, view, kind, summary, confidence, rows, created_at
FROM query_history ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing queries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			created int64
		)

		if err := rows.Scan(&e.ID, &e.Query, &e.View, &e.Kind, &e.Summary, &e.Confidence, &e.Rows, &created); err != nil {
			return nil, fmt.Errorf("history: scanning query: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing queries: %w", err)
	}

	return entries, nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM query_history`); err != nil {
		return fmt.Errorf("history: clearing: %w", err)
	}

	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
