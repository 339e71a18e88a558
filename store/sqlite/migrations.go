package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	Version int
	Name    string
	Up      string
}

// Migrations are applied in order; each version runs once per database.
var Migrations = []migration{
	{
		Version: 1,
		Name:    "create_vesting_state",
		Up: `
CREATE TABLE IF NOT EXISTS vesting_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`,
	},
	{
		Version: 2,
		Name:    "create_vesting_entries",
		Up: `
CREATE TABLE IF NOT EXISTS vesting_entries (
    address           TEXT PRIMARY KEY,
    total_entitlement TEXT NOT NULL DEFAULT '0',
    released_amount   TEXT NOT NULL DEFAULT '0',
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);
`,
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS vesting_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("vesting/sqlite: create migrations table: %w", err)
	}

	for _, m := range Migrations {
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("vesting/sqlite: migration %d %s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vesting_migrations WHERE version = ?`, m.Version).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vesting_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}
