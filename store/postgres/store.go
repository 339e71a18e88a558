// Package postgres stores vesting state in PostgreSQL through pgx. Update
// transactions take a transaction-scoped advisory lock, so commands are
// serialized across every process sharing the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

// writerLockKey is the advisory lock every Update holds until it commits.
const writerLockKey int64 = 0x76657374696e6702

// Store implements store.Store over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// Connect opens a pool for dsn.
func Connect(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: connect: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate(ctx, s.pool)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	if !s.closed.Swap(true) {
		s.pool.Close()
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r vestingstore.Reader) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("vesting/postgres: begin: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()
	return fn(ctx, &tx{q: pgTx})
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, t vestingstore.Tx) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("vesting/postgres: begin: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if _, err := pgTx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockKey); err != nil {
		return fmt.Errorf("vesting/postgres: writer lock: %w", err)
	}
	if err := fn(ctx, &tx{q: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Transaction ====================

type tx struct {
	q pgx.Tx
}

func (t *tx) getState(ctx context.Context, key string, v any) error {
	var raw []byte
	err := t.q.QueryRow(ctx, `SELECT value FROM vesting_state WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", vesting.ErrNotFound, key)
		}
		return fmt.Errorf("vesting/postgres: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("vesting/postgres: decode %s: %w", key, err)
	}
	return nil
}

func (t *tx) putState(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("vesting/postgres: encode %s: %w", key, err)
	}
	_, err = t.q.Exec(ctx, `
INSERT INTO vesting_state (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, raw,
	)
	if err != nil {
		return fmt.Errorf("vesting/postgres: put %s: %w", key, err)
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

type entryModel struct {
	Address          string
	TotalEntitlement string
	ReleasedAmount   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func toEntryModel(e *account.Entry) *entryModel {
	return &entryModel{
		Address:          e.Address,
		TotalEntitlement: e.TotalEntitlement.String(),
		ReleasedAmount:   e.ReleasedAmount.String(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*account.Entry, error) {
	total, err := types.ParseAmount(m.TotalEntitlement)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: entry %s total: %w", m.Address, err)
	}
	released, err := types.ParseAmount(m.ReleasedAmount)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: entry %s released: %w", m.Address, err)
	}
	return &account.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		Address:          m.Address,
		TotalEntitlement: total,
		ReleasedAmount:   released,
	}, nil
}

const entryColumns = `address, total_entitlement, released_amount, created_at, updated_at`

func scanEntry(row pgx.Row) (*account.Entry, error) {
	var m entryModel
	if err := row.Scan(&m.Address, &m.TotalEntitlement, &m.ReleasedAmount, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return fromEntryModel(&m)
}

func (t *tx) GetEntry(ctx context.Context, address string) (*account.Entry, error) {
	row := t.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM vesting_entries WHERE address = $1`, address)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s", vesting.ErrNotFound, address)
		}
		return nil, fmt.Errorf("vesting/postgres: get entry: %w", err)
	}
	return e, nil
}

func (t *tx) PutEntry(ctx context.Context, e *account.Entry) error {
	m := toEntryModel(e)
	_, err := t.q.Exec(ctx, `
INSERT INTO vesting_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (address) DO UPDATE SET
    total_entitlement = EXCLUDED.total_entitlement,
    released_amount   = EXCLUDED.released_amount,
    updated_at        = EXCLUDED.updated_at`,
		m.Address, m.TotalEntitlement, m.ReleasedAmount, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("vesting/postgres: put entry: %w", err)
	}
	return nil
}

func (t *tx) ListEntries(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	rows, err := t.q.Query(ctx,
		`SELECT `+entryColumns+` FROM vesting_entries ORDER BY address COLLATE "C" ASC LIMIT $1 OFFSET $2`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: list entries: %w", err)
	}
	defer rows.Close()

	var out []*account.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("vesting/postgres: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
