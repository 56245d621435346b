// Package journal keeps a SQLite log of booth sessions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Session outcomes.
const (
	OutcomePrinted   = "printed"
	OutcomeSaved     = "saved"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	frame       TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	output      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`

// Record is one finished session.
type Record struct {
	ID         string    `json:"id"`
	Frame      string    `json:"frame"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Output     string    `json:"output,omitempty"`
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Journal is a session log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path. ":memory:" gives
// a throwaway journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	// One writer, and every ":memory:" connection would be a new database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: exec %q: %w", firstLine(stmt), err)
		}
	}
	debug.Verbose("Journal opened: %s", path)
	return &Journal{db: db}, nil
}

// Add stores r. An empty ID is filled with a new one.
func (j *Journal) Add(ctx context.Context, r Record) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (id, frame, started_at, finished_at, outcome, output) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Frame, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Outcome, r.Output)
	if err != nil {
		return "", fmt.Errorf("journal: insert: %w", err)
	}
	debug.Live("Journal: session %s %s", r.ID, r.Outcome)
	return r.ID, nil
}

// Recent returns up to n sessions, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, frame, started_at, finished_at, outcome, output FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r                 Record
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Frame, &started, &finished, &r.Outcome, &r.Output); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of sessions per outcome.
func (j *Journal) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM sessions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("journal: count: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' && i > 0 {
			return s[:i]
		}
	}
	return s
}
