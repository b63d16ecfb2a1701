// Package history persists finished runs in SQLite so reports can be rendered
// again later and compared across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/output"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	passed      INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	leaked      INTEGER NOT NULL DEFAULT 0,
	finished    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tests (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	test       TEXT NOT NULL,
	invocation TEXT NOT NULL,
	status     TEXT NOT NULL,
	record     TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_tests_test ON tests(test);
`

// Run is the stored summary of one run
type Run struct {
	ID          string
	Name        string
	Environment string
	StartedAt   time.Time
	Duration    time.Duration
	Total       int
	Passed      int
	Failed      int
	Skipped     int
	Leaked      int
	Finished    bool
}

// Store represents a history database
type Store struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// Open opens the history database, creating the schema when needed
func Open(connectionString string) (*Store, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Path returns the database file, without query parameters
func (s *Store) Path() string {
	path, _, _ := strings.Cut(strings.TrimPrefix(s.dataSource, "file:"), "?")
	return path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun records the start of a run
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, environment, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Name, run.Environment, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// SaveTest appends rec to the run
func (s *Store) SaveTest(ctx context.Context, runID string, rec output.TestRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", rec.Test, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (run_id, seq, test, invocation, status, record)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM tests WHERE run_id = ?), ?, ?, ?, ?)`,
		runID, runID, rec.Test, rec.Invocation, rec.Status, string(data))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", rec.Test, err)
	}
	return nil
}

// FinishRun stores the final counts of the run
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET duration_ms = ?, total = ?, passed = ?, failed = ?, skipped = ?, leaked = ?, finished = 1
		 WHERE id = ?`,
		run.Duration.Milliseconds(), run.Total, run.Passed, run.Failed, run.Skipped, run.Leaked, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

const runColumns = `id, name, environment, started_at, duration_ms, total, passed, failed, skipped, leaked, finished`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r        Run
		duration int64
		finished int
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Environment, &r.StartedAt, &duration,
		&r.Total, &r.Passed, &r.Failed, &r.Skipped, &r.Leaked, &finished); err != nil {
		return nil, err
	}
	r.Duration = time.Duration(duration) * time.Millisecond
	r.Finished = finished == 1
	return &r, nil
}

// ListRuns returns the most recent runs first. A limit of zero returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// LoadRun returns the run and its test records in the order they finished
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, []output.TestRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record FROM tests WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []output.TestRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var rec output.TestRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, nil, fmt.Errorf("corrupt record in run %s: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration error: %w", err)
	}
	return run, records, nil
}

// LatestRun returns the most recent run
func (s *Store) LatestRun(ctx context.Context) (*Run, []output.TestRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, ErrRunNotFound
	}
	return s.LoadRun(ctx, runs[0].ID)
}

// parseConnectionString parses a connection string into driver and DSN
// Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - a bare file path
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)
	if connStr == "" {
		return "", "", errors.New("empty connection string")
	}

	// Handle sqlite:// and sqlite: prefixes
	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}

	u, err := url.Parse(connStr)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return "", "", fmt.Errorf("unsupported database scheme: %s", u.Scheme)
	}
	return "sqlite3", connStr, nil
}
