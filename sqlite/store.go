// Package sqlite implements [trickle.Store] on an embedded SQLite
// database using the pure-Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pwalus/trickle"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Interface compliance check.
var _ trickle.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	request_id    TEXT PRIMARY KEY,
	role          TEXT NOT NULL,
	text          TEXT NOT NULL,
	thinking      TEXT NOT NULL DEFAULT '',
	complete      INTEGER NOT NULL,
	truncated     INTEGER NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	finish_reason TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
`

// Store persists finalized responses in a local SQLite database.
// Saves are keyed by request ID, so re-finalizing the same request
// overwrites its row instead of duplicating it.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// The driver serializes access through a single connection; more
	// would contend on the database lock.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save upserts one response row keyed by request ID.
func (s *Store) Save(ctx context.Context, rec trickle.Record) error {
	const query = `
INSERT INTO responses (request_id, role, text, thinking, complete, truncated, model, finish_reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
	role = excluded.role,
	text = excluded.text,
	thinking = excluded.thinking,
	complete = excluded.complete,
	truncated = excluded.truncated,
	model = excluded.model,
	finish_reason = excluded.finish_reason,
	created_at = excluded.created_at
`
	_, err := s.db.ExecContext(ctx, query,
		rec.RequestID,
		string(rec.Role),
		rec.Text,
		rec.Thinking,
		boolToInt(rec.Complete),
		boolToInt(rec.Truncated),
		rec.Model,
		string(rec.FinishReason),
		rec.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save response %s: %w", rec.RequestID, err)
	}
	return nil
}

// Load returns the persisted response for a request ID. The second
// return value reports whether a row exists.
func (s *Store) Load(ctx context.Context, requestID string) (trickle.Record, bool, error) {
	const query = `
SELECT request_id, role, text, thinking, complete, truncated, model, finish_reason, created_at
FROM responses WHERE request_id = ?
`
	var rec trickle.Record
	var role, finishReason, createdAt string
	var complete, truncated int
	err := s.db.QueryRowContext(ctx, query, requestID).Scan(
		&rec.RequestID, &role, &rec.Text, &rec.Thinking,
		&complete, &truncated, &rec.Model, &finishReason, &createdAt,
	)
	if err == sql.ErrNoRows {
		return trickle.Record{}, false, nil
	}
	if err != nil {
		return trickle.Record{}, false, fmt.Errorf("sqlite: load response %s: %w", requestID, err)
	}

	rec.Role = trickle.Role(role)
	rec.FinishReason = trickle.FinishReason(finishReason)
	rec.Complete = complete != 0
	rec.Truncated = truncated != 0
	if t, err := parseTimestamp(createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
