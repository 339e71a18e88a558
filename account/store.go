package account

import (
	"context"

	"github.com/xraph/vesting/types"
)

type Store interface {
	GetEntry(ctx context.Context, address string) (*Entry, error)
	PutEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetTotal returns the running sum of every entry's TotalEntitlement.
	GetTotal(ctx context.Context) (types.Amount, error)
	PutTotal(ctx context.Context, total types.Amount) error
}
