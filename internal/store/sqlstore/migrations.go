package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type migrationDefinition struct {
	name string
	// statements per dialect name
	statements map[string][]string
}

var migrations = []migrationDefinition{
	{
		name: "1752112681_create-table-queue-entry",
		statements: map[string][]string{
			DriverMySQL: {`
				CREATE TABLE IF NOT EXISTS sqm_entry (
					id_sqm_entry BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
					ds_key VARCHAR(64) NOT NULL,
					dt_created DATETIME(6) NOT NULL,
					ds_clientname VARCHAR(255) NULL DEFAULT NULL,
					nr_number INT NULL DEFAULT NULL,
					ds_location VARCHAR(50) NULL DEFAULT NULL,
					do_status CHAR(1) NOT NULL DEFAULT 'W',
					dt_summoned DATETIME(6) NULL DEFAULT NULL,
					dt_served DATETIME(6) NULL DEFAULT NULL,
					dt_canceled DATETIME(6) NULL DEFAULT NULL,
					UNIQUE KEY uq_sqm_entry_key (ds_key),
					KEY ix_sqm_entry_created (dt_created)
				)`,
			},
			DriverPostgres: {`
				CREATE TABLE IF NOT EXISTS sqm_entry (
					id_sqm_entry BIGSERIAL PRIMARY KEY,
					ds_key VARCHAR(64) NOT NULL,
					dt_created TIMESTAMPTZ NOT NULL,
					ds_clientname VARCHAR(255) NULL,
					nr_number INTEGER NULL,
					ds_location VARCHAR(50) NULL,
					do_status CHAR(1) NOT NULL DEFAULT 'W',
					dt_summoned TIMESTAMPTZ NULL,
					dt_served TIMESTAMPTZ NULL,
					dt_canceled TIMESTAMPTZ NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS uq_sqm_entry_key ON sqm_entry (ds_key)`,
				`CREATE INDEX IF NOT EXISTS ix_sqm_entry_created ON sqm_entry (dt_created)`,
			},
			DriverSQLite: {`
				CREATE TABLE IF NOT EXISTS sqm_entry (
					id_sqm_entry INTEGER PRIMARY KEY AUTOINCREMENT,
					ds_key VARCHAR(64) NOT NULL,
					dt_created DATETIME NOT NULL,
					ds_clientname VARCHAR(255) NULL,
					nr_number INTEGER NULL,
					ds_location VARCHAR(50) NULL,
					do_status CHAR(1) NOT NULL DEFAULT 'W',
					dt_summoned DATETIME NULL,
					dt_served DATETIME NULL,
					dt_canceled DATETIME NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS uq_sqm_entry_key ON sqm_entry (ds_key)`,
				`CREATE INDEX IF NOT EXISTS ix_sqm_entry_created ON sqm_entry (dt_created)`,
			},
		},
	},
	{
		name: "1752112990_create-table-operator",
		statements: map[string][]string{
			DriverMySQL: {`
				CREATE TABLE IF NOT EXISTS sqm_operator (
					id_sqm_operator BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
					ds_name VARCHAR(255) NOT NULL,
					ds_email VARCHAR(255) NOT NULL,
					ds_password VARCHAR(255) NOT NULL,
					ds_permissions VARCHAR(255) NOT NULL DEFAULT '',
					do_banned CHAR(1) NOT NULL DEFAULT 'n',
					dt_created DATETIME(6) NOT NULL,
					UNIQUE KEY uq_sqm_operator_email (ds_email)
				)`,
			},
			DriverPostgres: {`
				CREATE TABLE IF NOT EXISTS sqm_operator (
					id_sqm_operator BIGSERIAL PRIMARY KEY,
					ds_name VARCHAR(255) NOT NULL,
					ds_email VARCHAR(255) NOT NULL,
					ds_password VARCHAR(255) NOT NULL,
					ds_permissions VARCHAR(255) NOT NULL DEFAULT '',
					do_banned CHAR(1) NOT NULL DEFAULT 'n',
					dt_created TIMESTAMPTZ NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS uq_sqm_operator_email ON sqm_operator (ds_email)`,
			},
			DriverSQLite: {`
				CREATE TABLE IF NOT EXISTS sqm_operator (
					id_sqm_operator INTEGER PRIMARY KEY AUTOINCREMENT,
					ds_name VARCHAR(255) NOT NULL,
					ds_email VARCHAR(255) NOT NULL,
					ds_password VARCHAR(255) NOT NULL,
					ds_permissions VARCHAR(255) NOT NULL DEFAULT '',
					do_banned CHAR(1) NOT NULL DEFAULT 'n',
					dt_created DATETIME NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS uq_sqm_operator_email ON sqm_operator (ds_email)`,
			},
		},
	},
}

const createMigrationTable = `
	CREATE TABLE IF NOT EXISTS sqm_migration (
		ds_name VARCHAR(190) NOT NULL PRIMARY KEY,
		dt_applied BIGINT NOT NULL
	)`

// Migrate applies every migration not yet recorded in sqm_migration.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createMigrationTable); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	for _, migration := range migrations {
		var name string
		err := s.db.QueryRowContext(ctx,
			s.dialect.rebind("SELECT ds_name FROM sqm_migration WHERE ds_name = ?"),
			migration.name,
		).Scan(&name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", migration.name, err)
		}

		for _, stmt := range migration.statements[s.dialect.name] {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", migration.name, err)
			}
		}

		if _, err := s.db.ExecContext(ctx,
			s.dialect.rebind("INSERT INTO sqm_migration (ds_name, dt_applied) VALUES (?, ?)"),
			migration.name, s.clock().UTC().Unix(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", migration.name, err)
		}

		s.logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}
