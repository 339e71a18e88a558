// Package account holds per-contributor ledger entries and the global total.
package account

import (
	"errors"

	"github.com/xraph/vesting/types"
)

// ErrExceedsEntitlement is returned when a release would push ReleasedAmount
// past TotalEntitlement.
var ErrExceedsEntitlement = errors.New("vesting: release exceeds entitlement")

// ErrExceedsReleased is returned when more is taken back than was released.
var ErrExceedsReleased = errors.New("vesting: unrelease exceeds released amount")

// Entry is one contributor's position. ReleasedAmount never exceeds
// TotalEntitlement, and TotalEntitlement only grows.
type Entry struct {
	types.Entity
	Address          string       `json:"address"`
	TotalEntitlement types.Amount `json:"total_entitlement"`
	ReleasedAmount   types.Amount `json:"released_amount"`
}

// NewEntry creates an empty entry for address.
func NewEntry(address string) *Entry {
	return &Entry{Entity: types.NewEntity(), Address: address}
}

// Credit adds amount to the entitlement.
func (e *Entry) Credit(amount types.Amount) error {
	total, err := e.TotalEntitlement.Add(amount)
	if err != nil {
		return err
	}
	e.TotalEntitlement = total
	e.Touch()
	return nil
}

// Release marks amount as disbursed.
func (e *Entry) Release(amount types.Amount) error {
	released, err := e.ReleasedAmount.Add(amount)
	if err != nil {
		return err
	}
	if e.TotalEntitlement.LessThan(released) {
		return ErrExceedsEntitlement
	}
	e.ReleasedAmount = released
	e.Touch()
	return nil
}

// Unrelease takes back amount from ReleasedAmount, for a disbursement that
// was never carried out.
func (e *Entry) Unrelease(amount types.Amount) error {
	if e.ReleasedAmount.LessThan(amount) {
		return ErrExceedsReleased
	}
	e.ReleasedAmount = e.ReleasedAmount.SaturatingSub(amount)
	e.Touch()
	return nil
}

// Clone returns a copy safe to mutate.
func (e *Entry) Clone() *Entry {
	cp := *e
	return &cp
}

type ListOpts struct {
	Limit  int
	Offset int
}
