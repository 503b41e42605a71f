package history

import (
	"database/sql"
	"fmt"
)

// Migration is one schema change, applied once and recorded in
// schema_migrations.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema of the task-history store. New
// changes append here with the next version number.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_task_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS task_history (
				id TEXT PRIMARY KEY,
				goal TEXT NOT NULL,
				status TEXT NOT NULL,
				plan TEXT,
				error TEXT,
				created_at DATETIME NOT NULL,
				finished_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_task_history_finished_at
				ON task_history(finished_at);
		`,
	},
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := runMigration(db, migration); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}
	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func runMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
