package store

import (
	"context"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Reader is read access to the ledger state: one record for each global
// (config, price table, curve, total) plus one record per account.
// Missing records return vesting.ErrNotFound, except GetTotal which reports
// zero.
type Reader interface {
	GetConfig(ctx context.Context) (*config.Config, error)
	GetPrices(ctx context.Context) (*price.Table, error)
	GetCurve(ctx context.Context) (*curve.Curve, error)
	GetEntry(ctx context.Context, address string) (*account.Entry, error)
	ListEntries(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error)
	GetTotal(ctx context.Context) (types.Amount, error)
}

// Tx is read-write access within one atomic unit. Reads observe the
// transaction's own writes.
type Tx interface {
	config.Store
	price.Store
	curve.Store
	account.Store
}

// Store is the unified storage interface for the vesting ledger.
type Store interface {
	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error

	// Update runs fn in a transaction. Every write fn made is committed if it
	// returns nil and discarded otherwise.
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
