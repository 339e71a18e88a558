package account_test

import (
	"errors"
	"testing"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/types"
)

func TestEntryCreditRelease(t *testing.T) {
	e := account.NewEntry("wallet1")
	if err := e.Credit(types.NewAmount(100)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := e.Release(types.NewAmount(60)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := e.ReleasedAmount.String(); got != "60" {
		t.Errorf("got released %v, want 60", got)
	}

	if err := e.Release(types.NewAmount(41)); !errors.Is(err, account.ErrExceedsEntitlement) {
		t.Errorf("got %v, want ErrExceedsEntitlement", err)
	}
	if got := e.ReleasedAmount.String(); got != "60" {
		t.Errorf("failed release mutated entry: got %v, want 60", got)
	}
}

func TestEntryUnrelease(t *testing.T) {
	e := account.NewEntry("wallet1")
	_ = e.Credit(types.NewAmount(100))
	_ = e.Release(types.NewAmount(60))

	if err := e.Unrelease(types.NewAmount(25)); err != nil {
		t.Fatalf("Unrelease: %v", err)
	}
	if got := e.ReleasedAmount.String(); got != "35" {
		t.Errorf("got released %v, want 35", got)
	}
	if err := e.Unrelease(types.NewAmount(36)); !errors.Is(err, account.ErrExceedsReleased) {
		t.Errorf("got %v, want ErrExceedsReleased", err)
	}
	if got := e.ReleasedAmount.String(); got != "35" {
		t.Errorf("failed unrelease mutated entry: got %v, want 35", got)
	}
}

func TestEntryClone(t *testing.T) {
	e := account.NewEntry("wallet1")
	cp := e.Clone()
	_ = cp.Credit(types.NewAmount(5))
	if !e.TotalEntitlement.IsZero() {
		t.Error("mutating clone changed original")
	}
}
