// Package history keeps a SQLite log of practice actions (copies, runs and
// new katas) so progress can be reviewed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL DEFAULT '',
	workspace  TEXT NOT NULL DEFAULT '',
	day        INTEGER NOT NULL DEFAULT 0,
	kata       TEXT NOT NULL,
	action     TEXT NOT NULL,
	status     TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_kata ON entries(kata);
CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session);
`

// Actions.
const (
	ActionCopy = "copy"
	ActionRun  = "run"
	ActionNew  = "new"
)

// Statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Entry is one recorded practice action. Session groups the entries
// written by one katac invocation.
type Entry struct {
	ID        int64
	Session   string
	Workspace string
	Day       int
	Kata      string
	Action    string
	Status    string
	Checksum  string
	Detail    string
	CreatedAt time.Time
}

// KataStats aggregates the entries of one kata.
type KataStats struct {
	Kata     string
	Copies   int
	Runs     int
	Failures int
	LastDay  int
	LastSeen time.Time
}

// Recorder is what the practice service needs from the log.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// DB wraps a sql.DB with history operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Recorder = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends e. A zero CreatedAt is set to now.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO entries (session, workspace, day, kata, action, status, checksum, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Session, e.Workspace, e.Day, e.Kata, e.Action, e.Status, e.Checksum, e.Detail, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session, workspace, day, kata, action, status, checksum, detail, created_at
		FROM entries
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Session, &e.Workspace, &e.Day, &e.Kata, &e.Action, &e.Status, &e.Checksum, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns per-kata aggregates ordered by kata name.
func (db *DB) Stats(ctx context.Context) ([]KataStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT kata,
		       SUM(CASE WHEN action = 'copy' AND status = 'ok' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN action = 'run' AND status = 'ok' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       MAX(day),
		       MAX(created_at)
		FROM entries
		GROUP BY kata
		ORDER BY kata
	`)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	defer rows.Close()

	var out []KataStats
	for rows.Next() {
		var s KataStats
		var last string
		if err := rows.Scan(&s.Kata, &s.Copies, &s.Runs, &s.Failures, &s.LastDay, &last); err != nil {
			return nil, fmt.Errorf("history: scan stats: %w", err)
		}
		s.LastSeen = parseTime(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

// MAX() loses the column type, so the driver hands back text.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
