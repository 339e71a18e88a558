package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
}

// migrationLockKey guards concurrent Migrate calls from several processes.
const migrationLockKey int64 = 0x76657374696e6701

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return fmt.Errorf("vesting/postgres: migration lock: %w", err)
		}
		if _, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vesting_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
			return fmt.Errorf("vesting/postgres: create migrations table: %w", err)
		}

		for _, m := range Migrations {
			var applied bool
			err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vesting_migrations WHERE version = $1)`, m.Version).Scan(&applied)
			if err != nil {
				return fmt.Errorf("vesting/postgres: migration %d: %w", m.Version, err)
			}
			if applied {
				continue
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return fmt.Errorf("vesting/postgres: migration %d %s: %w", m.Version, m.Name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO vesting_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return fmt.Errorf("vesting/postgres: record migration %d: %w", m.Version, err)
			}
		}
		return nil
	})
}
