// Package history persists finished and interrupted phases to a local SQLite
// database. This is a session log, not timer state: the daemon always starts
// from Idle and only appends here.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pomidoro/pomidoro/internal/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS phases (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	phase      TEXT    NOT NULL,
	started_at INTEGER NOT NULL,
	planned_ms INTEGER NOT NULL,
	spent_ms   INTEGER NOT NULL,
	completed  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_phases_started_at ON phases(started_at);
`

// Record describes one phase that ended.
type Record struct {
	Phase     string
	StartedAt time.Time
	Planned   time.Duration
	Spent     time.Duration
	Completed bool
}

// Store is an append-only phase log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one finished or interrupted phase.
func (s *Store) Record(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO phases (phase, started_at, planned_ms, spent_ms, completed) VALUES (?, ?, ?, ?, ?)`,
		rec.Phase,
		rec.StartedAt.Unix(),
		rec.Planned.Milliseconds(),
		rec.Spent.Milliseconds(),
		rec.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to record phase: %w", err)
	}
	return nil
}

// Summary aggregates the log relative to now. "Today" is the calendar day of
// now in local time; focus time counts only work phases.
func (s *Store) Summary(now time.Time) (*protocol.StatsData, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &protocol.StatsData{}

	row := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(completed), 0),
		        COALESCE(SUM(CASE WHEN phase = 'working' THEN spent_ms ELSE 0 END), 0)
		 FROM phases WHERE started_at >= ? AND phase = 'working'`,
		dayStart.Unix(),
	)
	var focusMS int64
	if err := row.Scan(&stats.SessionsToday, &stats.CompletedToday, &focusMS); err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	stats.FocusToday = time.Duration(focusMS) * time.Millisecond

	row = s.db.QueryRow(`SELECT COUNT(*) FROM phases WHERE phase = 'working'`)
	if err := row.Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("failed to query total stats: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
