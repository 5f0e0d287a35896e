// Package history persists a log of performed expansions so users can
// audit what the daemon typed on their behalf.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the expansion history store.
const schema = `
CREATE TABLE IF NOT EXISTS expansions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ns    INTEGER NOT NULL,
    trigger         TEXT NOT NULL,
    typed           TEXT NOT NULL,
    label           TEXT,
    replacement_len INTEGER NOT NULL,
    duration_us     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expansions_timestamp ON expansions(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_expansions_trigger ON expansions(trigger, timestamp_ns);
`

// Entry is one recorded expansion. Replacement text itself is not stored;
// snippets routinely hold addresses and signatures that do not belong in a
// plaintext database.
type Entry struct {
	ID             int64
	Timestamp      time.Time
	Trigger        string
	Typed          string
	Label          string
	ReplacementLen int
	Duration       time.Duration
}

// Store is the SQLite expansion log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert records one expansion and returns its ID.
func (s *Store) Insert(e *Entry) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO expansions (timestamp_ns, trigger, typed, label, replacement_len, duration_us)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UnixNano(), e.Trigger, e.Typed, e.Label, e.ReplacementLen, e.Duration.Microseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expansion: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp_ns, trigger, typed, label, replacement_len, duration_us
		FROM expansions
		ORDER BY timestamp_ns DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query expansions: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByTrigger returns entries for one trigger, most recent first.
func (s *Store) ByTrigger(trigger string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp_ns, trigger, typed, label, replacement_len, duration_us
		FROM expansions
		WHERE trigger = ?
		ORDER BY timestamp_ns DESC
		LIMIT ?`, trigger, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query expansions by trigger: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the total number of recorded expansions.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM expansions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expansions: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than the cutoff and returns how many were
// removed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM expansions WHERE timestamp_ns < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune expansions: %w", err)
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			tsNs       int64
			durationUs int64
		)
		if err := rows.Scan(&e.ID, &tsNs, &e.Trigger, &e.Typed, &e.Label, &e.ReplacementLen, &durationUs); err != nil {
			return nil, fmt.Errorf("scan expansion: %w", err)
		}
		e.Timestamp = time.Unix(0, tsNs)
		e.Duration = time.Duration(durationUs) * time.Microsecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
