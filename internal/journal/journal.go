// Package journal persists every cart action the controller handles in a
// local SQLite database, for the history command and for debugging failed
// checkouts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vitrine/internal/cart"
	"vitrine/internal/logging"

	_ "modernc.org/sqlite"
)

// Entry is one stored event.
type Entry struct {
	ID int64
	cart.Event
}

// Journal implements cart.Recorder on SQLite.
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the journal database at path, creating parent
// directories and the schema as needed. Use ":memory:" for a private
// in-memory journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, dbPath: path}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Journal("journal opened at %s", path)
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cart_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurred_at INTEGER NOT NULL,
		request_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT,
		outcome TEXT NOT NULL,
		message TEXT,
		item_count INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_cart_actions_time ON cart_actions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_cart_actions_outcome ON cart_actions(outcome);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// Record stores one event.
func (j *Journal) Record(ctx context.Context, e cart.Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO cart_actions (occurred_at, request_id, kind, target, outcome, message, item_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.RequestID, string(e.Kind), e.Target, string(e.Outcome), e.Message, e.ItemCount, e.Duration.Milliseconds(),
	)
	if err != nil {
		logging.JournalError("record %s %s: %v", e.Kind, e.RequestID, err)
		return fmt.Errorf("failed to record action: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns all entries.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, occurred_at, request_id, kind, target, outcome, message, item_count, duration_ms
		FROM cart_actions ORDER BY occurred_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			nanos      int64
			kind       string
			outcome    string
			target     sql.NullString
			message    sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &nanos, &e.RequestID, &kind, &target, &outcome, &message, &e.ItemCount, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Time = time.Unix(0, nanos)
		e.Kind = cart.Kind(kind)
		e.Outcome = cart.Outcome(outcome)
		e.Target = target.String
		e.Message = message.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats counts entries per outcome.
func (j *Journal) Stats(ctx context.Context) (map[cart.Outcome]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM cart_actions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[cart.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		stats[cart.Outcome(outcome)] = n
	}
	return stats, rows.Err()
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
