// Package history keeps a local record of finished documentation runs in a
// SQLite database under the data directory, so past outcomes survive process
// restarts and can be listed without scraping logs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// FileName is the database file created inside the data directory.
const FileName = "history.db"

// DefaultLimit bounds Recent queries when the caller passes no limit.
const DefaultLimit = 20

// Entry is one recorded run.
type Entry struct {
	RunID    string
	Trigger  string
	CI       bool
	Outcome  string
	Commit   string
	Started  time.Time
	Finished time.Time
	Stubs    int
	Error    string          // first fatal error, empty on success
	Report   json.RawMessage // full serialized report
}

// Duration returns the recorded wall time of the run, at second granularity.
func (e Entry) Duration() time.Duration { return e.Finished.Sub(e.Started) }

// Store persists run reports.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the history database at dbPath. Use ":memory:" for
// an ephemeral store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return s, nil
}

func (s *Store) initialize() error {
	// "trigger" is a reserved word in SQLite; the column is run_trigger.
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_trigger TEXT NOT NULL,
		ci INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		commit_hash TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		stub_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts a finished run. Recording the same run ID again replaces the
// earlier row.
func (s *Store) Record(ctx context.Context, report *pipeline.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(report.Serializable())
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	firstErr := ""
	if len(report.Errors) > 0 {
		firstErr = report.Errors[0].Error()
	}

	ci := 0
	if report.CI {
		ci = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, run_trigger, ci, outcome, commit_hash, started, finished, stub_count, error, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, string(report.Trigger), ci, report.Outcome, report.Commit,
		report.Start.Unix(), report.End.Unix(), report.StubCount, firstErr, payload,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// Recent returns up to limit runs, newest first. A limit of zero or less
// falls back to DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_trigger, ci, outcome, commit_hash, started, finished, stub_count, error, report
		 FROM runs ORDER BY started DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Prune deletes all but the newest keep runs and reports how many rows went.
// A keep of zero or less disables pruning.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned runs: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			ci                int
			started, finished int64
			report            []byte
		)
		err := rows.Scan(&e.RunID, &e.Trigger, &ci, &e.Outcome, &e.Commit, &started, &finished, &e.Stubs, &e.Error, &report)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.CI = ci != 0
		e.Started = time.Unix(started, 0)
		e.Finished = time.Unix(finished, 0)
		e.Report = report
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
