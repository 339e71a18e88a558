// Package sqlite stores vesting state in a SQLite database through the pure-Go
// modernc.org/sqlite driver. The pool holds a single connection, so Update
// transactions are serialized by the database handle itself.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	vestingstore "github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// compile-time interface check
var _ vestingstore.Store = (*Store)(nil)

const (
	keyConfig = "config"
	keyPrices = "price_table"
	keyCurve  = "vesting_curve"
	keyTotal  = "total"
)

// Store implements store.Store over database/sql.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("vesting/sqlite: empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vesting/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("vesting/sqlite: %s: %w", p, err)
		}
	}
	return New(db), nil
}

// New wraps an existing handle. The caller should limit it to one open
// connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r vestingstore.Reader) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: begin: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()
	return fn(ctx, &tx{q: sqlTx})
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, t vestingstore.Tx) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: begin: %w", err)
	}
	if err := fn(ctx, &tx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Transaction ====================

type tx struct {
	q *sql.Tx
}

func (t *tx) getState(ctx context.Context, key string, v any) error {
	var raw string
	err := t.q.QueryRowContext(ctx, `SELECT value FROM vesting_state WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("%w: %s", vesting.ErrNotFound, key)
		}
		return fmt.Errorf("vesting/sqlite: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("vesting/sqlite: decode %s: %w", key, err)
	}
	return nil
}

func (t *tx) putState(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: encode %s: %w", key, err)
	}
	_, err = t.q.ExecContext(ctx, `
INSERT INTO vesting_state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: put %s: %w", key, err)
	}
	return nil
}

// ==================== Globals ====================

func (t *tx) GetConfig(ctx context.Context) (*config.Config, error) {
	cfg := new(config.Config)
	if err := t.getState(ctx, keyConfig, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *tx) PutConfig(ctx context.Context, cfg *config.Config) error {
	return t.putState(ctx, keyConfig, cfg)
}

func (t *tx) GetPrices(ctx context.Context) (*price.Table, error) {
	table := new(price.Table)
	if err := t.getState(ctx, keyPrices, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *tx) PutPrices(ctx context.Context, table *price.Table) error {
	return t.putState(ctx, keyPrices, table)
}

func (t *tx) GetCurve(ctx context.Context) (*curve.Curve, error) {
	crv := new(curve.Curve)
	if err := t.getState(ctx, keyCurve, crv); err != nil {
		return nil, err
	}
	return crv, nil
}

func (t *tx) PutCurve(ctx context.Context, crv *curve.Curve) error {
	return t.putState(ctx, keyCurve, crv)
}

func (t *tx) GetTotal(ctx context.Context) (types.Amount, error) {
	var total types.Amount
	err := t.getState(ctx, keyTotal, &total)
	if errors.Is(err, vesting.ErrNotFound) {
		return types.Amount{}, nil
	}
	return total, err
}

func (t *tx) PutTotal(ctx context.Context, total types.Amount) error {
	return t.putState(ctx, keyTotal, total)
}

// ==================== Entries ====================

const entryColumns = `address, total_entitlement, released_amount, created_at, updated_at`

func (t *tx) GetEntry(ctx context.Context, address string) (*account.Entry, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM vesting_entries WHERE address = ?`, address)
	e, err := scanEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: entry %s", vesting.ErrNotFound, address)
		}
		return nil, fmt.Errorf("vesting/sqlite: get entry: %w", err)
	}
	return e, nil
}

func (t *tx) PutEntry(ctx context.Context, e *account.Entry) error {
	_, err := t.q.ExecContext(ctx, `
INSERT INTO vesting_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (address) DO UPDATE SET
    total_entitlement = excluded.total_entitlement,
    released_amount   = excluded.released_amount,
    updated_at        = excluded.updated_at`,
		e.Address, e.TotalEntitlement, e.ReleasedAmount,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: put entry: %w", err)
	}
	return nil
}

func (t *tx) ListEntries(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM vesting_entries ORDER BY address ASC LIMIT ? OFFSET ?`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("vesting/sqlite: list entries: %w", err)
	}
	defer rows.Close()

	var out []*account.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("vesting/sqlite: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*account.Entry, error) {
	var (
		e                account.Entry
		created, updated string
	)
	if err := row.Scan(&e.Address, &e.TotalEntitlement, &e.ReleasedAmount, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
