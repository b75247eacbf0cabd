package database

import (
	"database/sql"
	"fmt"
)

// Migration carries one schema step per dialect. The tables mirror the host
// schema the cleanup reads; they are only created when absent.
type Migration struct {
	Version  int
	SQLite   string
	Postgres string
}

var migrations = []Migration{
	{
		Version: 1,
		SQLite: `
		CREATE TABLE IF NOT EXISTS sys_file (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			storage INTEGER NOT NULL,
			identifier TEXT NOT NULL,
			name TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			modification_date INTEGER NOT NULL DEFAULT 0,
			last_move INTEGER NOT NULL DEFAULT 0,
			UNIQUE (storage, identifier)
		);

		CREATE TABLE IF NOT EXISTS sys_file_metadata (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			file INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sys_refindex (
			hash TEXT PRIMARY KEY,
			tablename TEXT NOT NULL,
			recuid INTEGER NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			ref_table TEXT NOT NULL,
			ref_uid INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_refindex_ref ON sys_refindex (ref_table, ref_uid);

		CREATE TABLE IF NOT EXISTS sys_file_reference (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			uid_local INTEGER NOT NULL,
			table_local TEXT NOT NULL DEFAULT 'sys_file',
			tablenames TEXT NOT NULL DEFAULT '',
			uid_foreign INTEGER NOT NULL DEFAULT 0,
			fieldname TEXT NOT NULL DEFAULT '',
			tstamp INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_file_reference_local ON sys_file_reference (uid_local);

		CREATE TABLE IF NOT EXISTS sys_file_collection (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			folder_identifier TEXT NOT NULL DEFAULT '',
			recursive INTEGER NOT NULL DEFAULT 0,
			category INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS sys_category_record_mm (
			uid_local INTEGER NOT NULL,
			uid_foreign INTEGER NOT NULL,
			tablenames TEXT NOT NULL,
			fieldname TEXT NOT NULL DEFAULT ''
		);`,
		Postgres: `
		CREATE TABLE IF NOT EXISTS sys_file (
			uid BIGSERIAL PRIMARY KEY,
			storage INTEGER NOT NULL,
			identifier TEXT NOT NULL,
			name TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			modification_date BIGINT NOT NULL DEFAULT 0,
			last_move BIGINT NOT NULL DEFAULT 0,
			UNIQUE (storage, identifier)
		);

		CREATE TABLE IF NOT EXISTS sys_file_metadata (
			uid BIGSERIAL PRIMARY KEY,
			file BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sys_refindex (
			hash TEXT PRIMARY KEY,
			tablename TEXT NOT NULL,
			recuid BIGINT NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			ref_table TEXT NOT NULL,
			ref_uid BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_refindex_ref ON sys_refindex (ref_table, ref_uid);

		CREATE TABLE IF NOT EXISTS sys_file_reference (
			uid BIGSERIAL PRIMARY KEY,
			uid_local BIGINT NOT NULL,
			table_local TEXT NOT NULL DEFAULT 'sys_file',
			tablenames TEXT NOT NULL DEFAULT '',
			uid_foreign BIGINT NOT NULL DEFAULT 0,
			fieldname TEXT NOT NULL DEFAULT '',
			tstamp BIGINT NOT NULL DEFAULT 0,
			deleted SMALLINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_file_reference_local ON sys_file_reference (uid_local);

		CREATE TABLE IF NOT EXISTS sys_file_collection (
			uid BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			folder_identifier TEXT NOT NULL DEFAULT '',
			recursive SMALLINT NOT NULL DEFAULT 0,
			category BIGINT NOT NULL DEFAULT 0,
			deleted SMALLINT NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS sys_category_record_mm (
			uid_local BIGINT NOT NULL,
			uid_foreign BIGINT NOT NULL,
			tablenames TEXT NOT NULL,
			fieldname TEXT NOT NULL DEFAULT ''
		);`,
	},
}

func (db *DB) applyMigrations() error {
	// Create migrations table if it doesn't exist
	_, err := db.DB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Apply each migration in transaction
	for _, migration := range migrations {
		var version int
		err := db.DB.QueryRow(db.rebind("SELECT version FROM schema_migrations WHERE version = ?"), migration.Version).Scan(&version)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to check migration version: %w", err)
		}
		if err == nil {
			continue // Migration already applied
		}

		script := migration.SQLite
		if db.driver == DriverPostgres {
			script = migration.Postgres
		}

		tx, err := db.DB.Begin()
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.Exec(script); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(db.rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)"), migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
