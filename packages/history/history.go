// Package history stores finished suite runs in a SQLite database so that
// flaky or regressing tests can be spotted across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tests (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	full_name   TEXT NOT NULL,
	module      TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	record      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS tests_full_name ON tests(full_name);
`

// ErrNoRun is returned when a run id is not in the store.
var ErrNoRun = errors.New("run not found")

// Run is one stored suite run.
type Run struct {
	ID        string
	Name      string
	Status    result.Status
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
}

// TestRun is one stored outcome of a single test.
type TestRun struct {
	RunID     string
	FullName  string
	Module    string
	Status    result.Status
	Duration  time.Duration
	Record    string
	StartedAt time.Time
}

// Store is a run history backed by SQLite.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the history database. path may carry a sqlite:// or
// sqlite: prefix.
func Open(path string) (*Store, error) {
	dsn := parseConnectionString(path)
	if dsn == "" {
		return nil, fmt.Errorf("empty history database path")
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

func parseConnectionString(connStr string) string {
	connStr = strings.TrimSpace(connStr)
	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://")
	}
	return strings.TrimPrefix(connStr, "sqlite:")
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores a finished suite and every test result in one transaction.
func (s *Store) Save(ctx context.Context, r *result.Suite) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, status, started_at, duration_ms, passed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.Status.String(), r.StartTime.UnixMilli(), r.Duration.Milliseconds(),
		r.Passed, r.Failed, r.Skipped)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tests (run_id, full_name, module, status, duration_ms, record) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare test insert: %w", err)
	}
	defer stmt.Close()

	for m, t := range r.Tests() {
		if _, err := stmt.ExecContext(ctx, r.RunID, t.FullName, m.Name, t.Status.String(), t.Duration.Milliseconds(), t.Record); err != nil {
			return fmt.Errorf("insert test %s: %w", t.FullName, err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.queryRuns(ctx,
		`SELECT id, name, status, started_at, duration_ms, passed, failed, skipped
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run           Run
			status        string
			started, dura int64
		)
		if err := rows.Scan(&run.ID, &run.Name, &status, &started, &dura, &run.Passed, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if run.Status, err = result.ParseStatus(status); err != nil {
			return nil, err
		}
		run.StartedAt = time.UnixMilli(started)
		run.Duration = time.Duration(dura) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Get returns a single run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	runs, err := s.queryRuns(ctx,
		`SELECT id, name, status, started_at, duration_ms, passed, failed, skipped
		 FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRun, id)
	}
	return &runs[0], nil
}

// TestHistory returns the latest outcomes of one test, newest first.
func (s *Store) TestHistory(ctx context.Context, fullName string, limit int) ([]TestRun, error) {
	return s.queryTests(ctx,
		`SELECT t.run_id, t.full_name, t.module, t.status, t.duration_ms, t.record, r.started_at
		 FROM tests t JOIN runs r ON r.id = t.run_id
		 WHERE t.full_name = ?
		 ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, fullName, limit)
}

// RunTests returns every test outcome stored for a run.
func (s *Store) RunTests(ctx context.Context, runID string) ([]TestRun, error) {
	return s.queryTests(ctx,
		`SELECT t.run_id, t.full_name, t.module, t.status, t.duration_ms, t.record, r.started_at
		 FROM tests t JOIN runs r ON r.id = t.run_id
		 WHERE t.run_id = ? ORDER BY t.rowid`, runID)
}

func (s *Store) queryTests(ctx context.Context, query string, args ...any) ([]TestRun, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tests []TestRun
	for rows.Next() {
		var (
			t             TestRun
			status        string
			dura, started int64
		)
		if err := rows.Scan(&t.RunID, &t.FullName, &t.Module, &status, &dura, &t.Record, &started); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if t.Status, err = result.ParseStatus(status); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(dura) * time.Millisecond
		t.StartedAt = time.UnixMilli(started)
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tests, nil
}

// Flaky lists tests that both passed and failed within the last window runs,
// mapped to their failure count.
func (s *Store) Flaky(ctx context.Context, window int) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.full_name, SUM(t.status = 'Failed')
		 FROM tests t
		 WHERE t.run_id IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)
		 GROUP BY t.full_name
		 HAVING SUM(t.status = 'Failed') > 0 AND SUM(t.status = 'Passed') > 0`, window)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	flaky := make(map[string]int)
	for rows.Next() {
		var name string
		var failed int
		if err := rows.Scan(&name, &failed); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		flaky[name] = failed
	}
	return flaky, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest, returning how many
// runs were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}
