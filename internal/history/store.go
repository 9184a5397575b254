// Package history records batch operation runs in a SQLite database so
// drover history can answer what ran, when, and with what outcome.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoDatabase is returned when opening an existing database that has
// never been created.
var ErrNoDatabase = errors.New("history database does not exist")

// OperationRun represents a single recorded batch operation
type OperationRun struct {
	ID        int64
	RunID     string // shared by all steps of one drover invocation
	Operation string // copy, rename, list, watch-copy

	// Source is the directory the operation read from
	Source string

	// Target is the operation's output: destination directory for copy,
	// stem for rename, manifest path for list
	Target string

	// Detail carries operation arguments in human readable form
	Detail string

	FileCount    int
	Success      bool
	ErrorMessage string

	// PlanName and StepNumber are set for plan runs, zero otherwise
	PlanName   string
	StepNumber int

	DurationMS int64
	Timestamp  time.Time
}

// Store manages the SQLite database for run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// OpenExisting opens a database that must already exist. Read-only history
// commands use this so they do not create an empty database as a side effect.
func OpenExisting(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, ErrNoDatabase
		}
	}
	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access with retry logic.
	// Set busy_timeout FIRST so subsequent operations wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}

		// Only retry on "database is locked" errors
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		// Exponential backoff
		delay := baseDelay * time.Duration(1<<attempt)
		time.Sleep(delay)
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// tableExists checks if a table exists in the database
func (s *Store) tableExists(tableName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	err := s.db.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return count > 0, nil
}

// RecordRun records an operation run in the database. A missing RunID is
// filled in so every row belongs to some invocation.
func (s *Store) RecordRun(ctx context.Context, run *OperationRun) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}

	query := `INSERT INTO operation_runs
		(run_id, operation, source, target, detail, file_count, success, error_message, plan_name, step_number, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Operation,
		run.Source,
		run.Target,
		run.Detail,
		run.FileCount,
		run.Success,
		run.ErrorMessage,
		run.PlanName,
		run.StepNumber,
		run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert operation run: %w", err)
	}

	// Get the inserted ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	run.ID = id

	return nil
}

// runColumns is the scan column list shared by all run queries
const runColumns = `id, run_id, operation, source, target, detail, file_count, success, error_message, plan_name, step_number, duration_ms, timestamp`

// scanRuns reads OperationRun rows from a result set
func scanRuns(rows *sql.Rows) ([]*OperationRun, error) {
	var runs []*OperationRun
	for rows.Next() {
		run := &OperationRun{}
		var source, target, detail, errorMessage, planName sql.NullString
		var stepNumber, durationMS sql.NullInt64

		err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.Operation,
			&source,
			&target,
			&detail,
			&run.FileCount,
			&run.Success,
			&errorMessage,
			&planName,
			&stepNumber,
			&durationMS,
			&run.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		// Handle nullable fields
		if source.Valid {
			run.Source = source.String
		}
		if target.Valid {
			run.Target = target.String
		}
		if detail.Valid {
			run.Detail = detail.String
		}
		if errorMessage.Valid {
			run.ErrorMessage = errorMessage.String
		}
		if planName.Valid {
			run.PlanName = planName.String
		}
		if stepNumber.Valid {
			run.StepNumber = int(stepNumber.Int64)
		}
		if durationMS.Valid {
			run.DurationMS = durationMS.Int64
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// RecentRuns retrieves the most recent runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*OperationRun, error) {
	query := `SELECT ` + runColumns + `
		FROM operation_runs
		ORDER BY id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsForPlan retrieves all runs recorded for a plan, newest first
func (s *Store) RunsForPlan(ctx context.Context, planName string) ([]*OperationRun, error) {
	query := `SELECT ` + runColumns + `
		FROM operation_runs
		WHERE plan_name = ?
		ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, planName)
	if err != nil {
		return nil, fmt.Errorf("query plan runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsByRunID retrieves all rows of one invocation in step order
func (s *Store) RunsByRunID(ctx context.Context, runID string) ([]*OperationRun, error) {
	query := `SELECT ` + runColumns + `
		FROM operation_runs
		WHERE run_id = ?
		ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run by id: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// OperationStats aggregates runs of one operation type
type OperationStats struct {
	Operation string
	Runs      int
	Succeeded int
	Failed    int
	Files     int
}

// Stats aggregates the whole run history
type Stats struct {
	TotalRuns  int
	Succeeded  int
	Failed     int
	TotalFiles int
	Operations []OperationStats
	FirstRun   time.Time
	LastRun    time.Time
}

// Stats computes aggregate statistics over all recorded runs
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
		COALESCE(SUM(file_count), 0)
		FROM operation_runs`
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.TotalRuns, &stats.Succeeded, &stats.Failed, &stats.TotalFiles)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	if stats.TotalRuns == 0 {
		return stats, nil
	}

	// Select the timestamp column directly rather than MIN/MAX so the
	// driver still sees the declared type and returns time.Time.
	err = s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM operation_runs ORDER BY timestamp ASC LIMIT 1`).Scan(&stats.FirstRun)
	if err != nil {
		return nil, fmt.Errorf("query first run: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM operation_runs ORDER BY timestamp DESC LIMIT 1`).Scan(&stats.LastRun)
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	opQuery := `SELECT operation,
		COUNT(*),
		COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
		COALESCE(SUM(file_count), 0)
		FROM operation_runs
		GROUP BY operation
		ORDER BY operation`

	rows, err := s.db.QueryContext(ctx, opQuery)
	if err != nil {
		return nil, fmt.Errorf("query operation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var op OperationStats
		if err := rows.Scan(&op.Operation, &op.Runs, &op.Succeeded, &op.Failed, &op.Files); err != nil {
			return nil, fmt.Errorf("scan operation stats: %w", err)
		}
		stats.Operations = append(stats.Operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation stats: %w", err)
	}

	return stats, nil
}

// Clear deletes all recorded runs and returns how many were removed
func (s *Store) Clear(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM operation_runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared runs: %w", err)
	}
	return count, nil
}

// Prune deletes runs older than keepDays days and returns how many were removed
func (s *Store) Prune(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	cutoff := fmt.Sprintf("-%d days", keepDays)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM operation_runs WHERE timestamp < datetime('now', ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned runs: %w", err)
	}
	return count, nil
}

// AllRuns retrieves every recorded run, oldest first. Export commands use it.
func (s *Store) AllRuns(ctx context.Context) ([]*OperationRun, error) {
	query := `SELECT ` + runColumns + ` FROM operation_runs ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}
