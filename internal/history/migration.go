package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations contains all schema migrations in order
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with operation_runs table",
		SQL: `
CREATE TABLE IF NOT EXISTS operation_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    source TEXT,
    target TEXT,
    detail TEXT,
    file_count INTEGER DEFAULT 0,
    success BOOLEAN NOT NULL,
    error_message TEXT,
    plan_name TEXT,
    step_number INTEGER DEFAULT 0,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operation_runs_run_id ON operation_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_operation_runs_operation ON operation_runs(operation);
CREATE INDEX IF NOT EXISTS idx_operation_runs_plan ON operation_runs(plan_name);
CREATE INDEX IF NOT EXISTS idx_operation_runs_timestamp ON operation_runs(timestamp);
`,
	},
	{
		Version:     2,
		Description: "Add duration_ms column for step timing",
		SQL:         ``, // Handled by applyMigration2Tx
	},
}

// ApplyMigrations applies all pending migrations to the database.
// Runs in a transaction so partial failures leave the schema untouched.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op if committed
	}()

	if err := ensureSchemaVersionTableTx(tx); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	applied, err := getAppliedVersionsTx(tx)
	if err != nil {
		return fmt.Errorf("get applied versions: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		// Migration 2 adds a column, which needs existence checking
		if migration.Version == 2 {
			if err := applyMigration2Tx(tx); err != nil {
				return fmt.Errorf("apply migration %d: %w", migration.Version, err)
			}
		} else {
			if _, err := tx.Exec(migration.SQL); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
			}
		}

		if err := recordMigrationTx(tx, migration); err != nil {
			return fmt.Errorf("record migration %d: %w", migration.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}

	return nil
}

// applyMigration2Tx adds the duration_ms column to databases created
// before step timing existed.
func applyMigration2Tx(tx *sql.Tx) error {
	if err := addColumnIfNotExistsTx(tx, "operation_runs", "duration_ms", "INTEGER DEFAULT 0"); err != nil {
		return err
	}

	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_operation_runs_success ON operation_runs(success)`)
	if err != nil {
		return fmt.Errorf("create success index: %w", err)
	}
	return nil
}

// addColumnIfNotExistsTx adds a column only if it does not already exist
func addColumnIfNotExistsTx(tx *sql.Tx, table, column, definition string) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan column info: %w", err)
		}
		if name == column {
			exists = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate column info: %w", err)
	}

	if exists {
		return nil
	}

	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return fmt.Errorf("add column %s: %w", column, err)
	}
	return nil
}

// ensureSchemaVersionTableTx creates the schema version tracking table
func ensureSchemaVersionTableTx(tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	_, err := tx.Exec(query)
	return err
}

// getAppliedVersionsTx returns the set of already applied migration versions
func getAppliedVersionsTx(tx *sql.Tx) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := tx.Query(`SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		applied[version] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return applied, nil
}

// recordMigrationTx marks a migration as applied
func recordMigrationTx(tx *sql.Tx, migration Migration) error {
	_, err := tx.Exec(
		`INSERT OR IGNORE INTO schema_version (version, description) VALUES (?, ?)`,
		migration.Version, migration.Description,
	)
	return err
}

// GetLatestVersion returns the highest applied migration version
func (s *Store) GetLatestVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query latest version: %w", err)
	}
	return version, nil
}

// IsMigrationApplied checks whether a specific migration version is applied
func (s *Store) IsMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_version WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration version: %w", err)
	}
	return count > 0, nil
}
