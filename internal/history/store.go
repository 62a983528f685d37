// Package history records press/release cycles of the global shortcut in a
// local SQLite database so a recording backend can pick them up later.
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

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// FileName is the database file created next to config.yaml.
	FileName = "history.db"

	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrNotFound is returned when no activation has the requested ID.
var ErrNotFound = errors.New("activation not found")

// Activation is one completed press/release cycle.
type Activation struct {
	ID         string    `json:"id"`
	Shortcut   string    `json:"shortcut"`
	PressedAt  time.Time `json:"pressed_at"`
	ReleasedAt time.Time `json:"released_at"`
	DurationMs int64     `json:"duration_ms"`
	Processed  bool      `json:"processed"`
}

const schema = `
CREATE TABLE IF NOT EXISTS activations (
	id          TEXT PRIMARY KEY,
	shortcut    TEXT    NOT NULL,
	pressed_at  INTEGER NOT NULL,
	released_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_activations_pressed_at ON activations (pressed_at DESC);
`

// Store is the SQLite-backed activation table. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// One connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: init %s: %w", path, err)
		}
	}
	slog.Debug("[DEBUG-HISTORY] store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a. An empty ID is replaced by a new UUID and DurationMs is
// derived from the timestamps. It returns the stored row.
func (s *Store) Insert(ctx context.Context, a Activation) (Activation, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ReleasedAt.Before(a.PressedAt) {
		return Activation{}, fmt.Errorf("history: released before pressed (%s < %s)", a.ReleasedAt, a.PressedAt)
	}
	a.DurationMs = a.ReleasedAt.Sub(a.PressedAt).Milliseconds()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activations (id, shortcut, pressed_at, released_at, duration_ms, processed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Shortcut, a.PressedAt.UnixMilli(), a.ReleasedAt.UnixMilli(), a.DurationMs, boolToInt(a.Processed))
	if err != nil {
		return Activation{}, fmt.Errorf("history: insert: %w", err)
	}
	// Stored precision is milliseconds; return what a later Get would see.
	a.PressedAt = time.UnixMilli(a.PressedAt.UnixMilli())
	a.ReleasedAt = time.UnixMilli(a.ReleasedAt.UnixMilli())
	return a, nil
}

// List returns activations newest first, plus the total row count.
// limit <= 0 means the default page size; it is capped at 500.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Activation, int, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("history: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, shortcut, pressed_at, released_at, duration_ms, processed
		 FROM activations ORDER BY pressed_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	items := make([]Activation, 0, min(limit, total))
	for rows.Next() {
		a, err := scanActivation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("history: list: %w", err)
	}
	return items, total, nil
}

// Get returns one activation or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Activation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, shortcut, pressed_at, released_at, duration_ms, processed
		 FROM activations WHERE id = ?`, id)
	a, err := scanActivation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Activation{}, fmt.Errorf("history: %s: %w", id, ErrNotFound)
	}
	return a, err
}

// Delete removes one activation or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	return requireOneRow(res, id)
}

// MarkProcessed flags an activation as consumed and returns the updated row.
func (s *Store) MarkProcessed(ctx context.Context, id string) (Activation, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE activations SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return Activation{}, fmt.Errorf("history: mark processed: %w", err)
	}
	if err := requireOneRow(res, id); err != nil {
		return Activation{}, err
	}
	return s.Get(ctx, id)
}

// Prune keeps the newest keep rows and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activations WHERE id NOT IN (
			SELECT id FROM activations ORDER BY pressed_at DESC, id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	if n > 0 {
		slog.Debug("[DEBUG-HISTORY] pruned activations", "deleted", n, "keep", keep)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivation(row rowScanner) (Activation, error) {
	var (
		a                   Activation
		pressedMs, released int64
		processed           int
	)
	if err := row.Scan(&a.ID, &a.Shortcut, &pressedMs, &released, &a.DurationMs, &processed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Activation{}, err
		}
		return Activation{}, fmt.Errorf("history: scan: %w", err)
	}
	a.PressedAt = time.UnixMilli(pressedMs)
	a.ReleasedAt = time.UnixMilli(released)
	a.Processed = processed != 0
	return a, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("history: %s: %w", id, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
