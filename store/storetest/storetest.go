// Package storetest is a conformance suite run by every store back end.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/command"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// Factory returns an empty, migrated store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"MissingRecords", testMissingRecords},
		{"GlobalsRoundTrip", testGlobalsRoundTrip},
		{"EntryRoundTrip", testEntryRoundTrip},
		{"RollbackOnError", testRollbackOnError},
		{"ReadYourWrites", testReadYourWrites},
		{"ListEntries", testListEntries},
		{"LargeAmounts", testLargeAmounts},
		{"ClaimConservation", testClaimConservation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func view(t *testing.T, s store.Store, fn func(ctx context.Context, r store.Reader) error) {
	t.Helper()
	if err := s.View(context.Background(), fn); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func update(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func testMissingRecords(t *testing.T, s store.Store) {
	view(t, s, func(ctx context.Context, r store.Reader) error {
		if _, err := r.GetConfig(ctx); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetConfig: got %v, want ErrNotFound", err)
		}
		if _, err := r.GetPrices(ctx); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetPrices: got %v, want ErrNotFound", err)
		}
		if _, err := r.GetCurve(ctx); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetCurve: got %v, want ErrNotFound", err)
		}
		if _, err := r.GetEntry(ctx, "nobody"); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetEntry: got %v, want ErrNotFound", err)
		}
		total, err := r.GetTotal(ctx)
		if err != nil || !total.IsZero() {
			t.Errorf("GetTotal: got %v, %v; want 0, nil", total, err)
		}
		entries, err := r.ListEntries(ctx, account.ListOpts{})
		if err != nil || len(entries) != 0 {
			t.Errorf("ListEntries: got %d entries, %v; want none", len(entries), err)
		}
		return nil
	})
}

func testGlobalsRoundTrip(t *testing.T, s store.Store) {
	cfg := &config.Config{Owner: "owner", Treasury: "treasury", TargetToken: "token", StartTime: 42}
	crv := &curve.Curve{ImmediateFraction: 10, CliffOffset: 5, VestingDuration: 100}
	table := price.Default()

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		if err := tx.PutCurve(ctx, crv); err != nil {
			return err
		}
		if err := tx.PutPrices(ctx, table); err != nil {
			return err
		}
		return tx.PutTotal(ctx, types.NewAmount(1234))
	})

	view(t, s, func(ctx context.Context, r store.Reader) error {
		gotCfg, err := r.GetConfig(ctx)
		if err != nil {
			return err
		}
		if *gotCfg != *cfg {
			t.Errorf("config: got %+v, want %+v", *gotCfg, *cfg)
		}
		gotCrv, err := r.GetCurve(ctx)
		if err != nil {
			return err
		}
		if *gotCrv != *crv {
			t.Errorf("curve: got %+v, want %+v", *gotCrv, *crv)
		}
		gotTable, err := r.GetPrices(ctx)
		if err != nil {
			return err
		}
		if len(gotTable.Prices) != 2 {
			t.Errorf("prices: got %d currencies, want 2", len(gotTable.Prices))
		}
		if p, _ := gotTable.Lookup(price.DenomNative); p.String() != "5280" {
			t.Errorf("native price: got %v, want 5280", p)
		}
		total, err := r.GetTotal(ctx)
		if err != nil {
			return err
		}
		if total.String() != "1234" {
			t.Errorf("total: got %v, want 1234", total)
		}
		return nil
	})
}

func testEntryRoundTrip(t *testing.T, s store.Store) {
	e := account.NewEntry("wallet1")
	e.TotalEntitlement = types.NewAmount(1000)
	e.ReleasedAmount = types.NewAmount(250)

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.PutEntry(ctx, e)
	})

	e.ReleasedAmount = types.NewAmount(300)
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.PutEntry(ctx, e)
	})

	view(t, s, func(ctx context.Context, r store.Reader) error {
		got, err := r.GetEntry(ctx, "wallet1")
		if err != nil {
			return err
		}
		if got.TotalEntitlement.String() != "1000" || got.ReleasedAmount.String() != "300" {
			t.Errorf("got %v/%v, want 1000/300", got.TotalEntitlement, got.ReleasedAmount)
		}
		if got.Address != "wallet1" {
			t.Errorf("got address %q, want wallet1", got.Address)
		}
		return nil
	})
}

var errAbort = errors.New("abort")

func testRollbackOnError(t *testing.T, s store.Store) {
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.PutTotal(ctx, types.NewAmount(10))
	})

	err := s.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutTotal(ctx, types.NewAmount(99)); err != nil {
			return err
		}
		if err := tx.PutEntry(ctx, account.NewEntry("ghost")); err != nil {
			return err
		}
		if err := tx.PutConfig(ctx, &config.Config{Owner: "ghost"}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Update: got %v, want errAbort", err)
	}

	view(t, s, func(ctx context.Context, r store.Reader) error {
		total, err := r.GetTotal(ctx)
		if err != nil {
			return err
		}
		if total.String() != "10" {
			t.Errorf("total: got %v, want 10", total)
		}
		if _, err := r.GetEntry(ctx, "ghost"); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetEntry(ghost): got %v, want ErrNotFound", err)
		}
		if _, err := r.GetConfig(ctx); !errors.Is(err, vesting.ErrNotFound) {
			t.Errorf("GetConfig: got %v, want ErrNotFound", err)
		}
		return nil
	})
}

func testReadYourWrites(t *testing.T, s store.Store) {
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		e := account.NewEntry("wallet1")
		e.TotalEntitlement = types.NewAmount(5)
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		got, err := tx.GetEntry(ctx, "wallet1")
		if err != nil {
			return fmt.Errorf("read own entry: %w", err)
		}
		if got.TotalEntitlement.String() != "5" {
			t.Errorf("got %v, want 5", got.TotalEntitlement)
		}

		if err := tx.PutTotal(ctx, types.NewAmount(5)); err != nil {
			return err
		}
		total, err := tx.GetTotal(ctx)
		if err != nil {
			return err
		}
		if total.String() != "5" {
			t.Errorf("total: got %v, want 5", total)
		}

		entries, err := tx.ListEntries(ctx, account.ListOpts{})
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			t.Errorf("ListEntries: got %d, want 1", len(entries))
		}
		return nil
	})
}

func testListEntries(t *testing.T, s store.Store) {
	addrs := []string{"carol", "alice", "erin", "bob", "dave"}
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		for i, addr := range addrs {
			e := account.NewEntry(addr)
			e.TotalEntitlement = types.NewAmount(uint64(i + 1))
			if err := tx.PutEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})

	tests := []struct {
		name string
		opts account.ListOpts
		want []string
	}{
		{"all", account.ListOpts{}, []string{"alice", "bob", "carol", "dave", "erin"}},
		{"limit", account.ListOpts{Limit: 2}, []string{"alice", "bob"}},
		{"offset", account.ListOpts{Offset: 3}, []string{"dave", "erin"}},
		{"page", account.ListOpts{Limit: 2, Offset: 1}, []string{"bob", "carol"}},
		{"past end", account.ListOpts{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view(t, s, func(ctx context.Context, r store.Reader) error {
				entries, err := r.ListEntries(ctx, tt.opts)
				if err != nil {
					return err
				}
				if len(entries) != len(tt.want) {
					t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
				}
				for i, e := range entries {
					if e.Address != tt.want[i] {
						t.Errorf("entry %d: got %q, want %q", i, e.Address, tt.want[i])
					}
				}
				return nil
			})
		})
	}
}

func testLargeAmounts(t *testing.T, s store.Store) {
	huge := types.MustParseAmount("340282366920938463463374607431768211456") // 2^128
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		e := account.NewEntry("whale")
		e.TotalEntitlement = huge
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		return tx.PutTotal(ctx, huge)
	})

	view(t, s, func(ctx context.Context, r store.Reader) error {
		e, err := r.GetEntry(ctx, "whale")
		if err != nil {
			return err
		}
		if e.TotalEntitlement.Cmp(huge) != 0 {
			t.Errorf("entry: got %v, want %v", e.TotalEntitlement, huge)
		}
		total, err := r.GetTotal(ctx)
		if err != nil {
			return err
		}
		if total.Cmp(huge) != 0 {
			t.Errorf("total: got %v, want %v", total, huge)
		}
		return nil
	})
}

// cancelOnPaid cancels the caller's context after each disbursement lands.
type cancelOnPaid struct {
	next   chain.Executor
	cancel context.CancelFunc
}

func (c *cancelOnPaid) Execute(ctx context.Context, ins chain.Instruction) error {
	if err := c.next.Execute(ctx, ins); err != nil {
		return err
	}
	c.cancel()
	return nil
}

// testClaimConservation drives claims through an engine over s. Whatever
// happens to the caller's context after a disbursement, the released amount
// must equal what the recipient was paid.
func testClaimConservation(t *testing.T, s store.Store) {
	const (
		owner    = "0x1000000000000000000000000000000000000001"
		treasury = "0x2000000000000000000000000000000000000002"
		token    = "0x3000000000000000000000000000000000000003"
		alice    = "0xa11ce00000000000000000000000000000000000"
		start    = uint64(1_700_000_000)
	)
	bg := context.Background()

	mc := memchain.New()
	mc.CreateToken(token, chain.TokenInfo{Name: "Aqua", Symbol: "AQUA", Decimals: 6}, treasury, types.NewAmount(1_000_000))
	ex := &cancelOnPaid{next: chain.NewDispatcher(mc, mc), cancel: func() {}}
	e := vesting.New(s, mc, mc, vesting.WithExecutor(ex))
	if err := e.Start(bg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Instantiate(bg, vesting.Env{Sender: owner}, vesting.InstantiateParams{Treasury: treasury, TargetToken: token}); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	setup := []command.Command{
		&command.SetVestingParameters{Curve: curve.Curve{ImmediateFraction: 10, VestingDuration: 100}},
		&command.StartRelease{StartTime: start},
		&command.AddUserByOwner{Wallet: alice, Amount: types.NewAmount(1000)},
	}
	for _, cmd := range setup {
		if _, err := e.Execute(bg, vesting.Env{Sender: owner, Now: start}, cmd); err != nil {
			t.Fatalf("%s: %v", cmd.Name(), err)
		}
	}

	for _, now := range []uint64{start + 50, start + 50, start + 100, start + 100} {
		ctx, cancel := context.WithCancel(bg)
		ex.cancel = cancel
		_, _ = e.Execute(ctx, vesting.Env{Sender: alice, Now: now}, &command.ClaimPendingTokens{})
		cancel()
	}

	held, err := mc.BalanceOf(bg, token, alice)
	if err != nil {
		t.Fatal(err)
	}
	left, err := mc.BalanceOf(bg, token, treasury)
	if err != nil {
		t.Fatal(err)
	}
	var released types.Amount
	view(t, s, func(ctx context.Context, r store.Reader) error {
		entry, err := r.GetEntry(ctx, alice)
		if err != nil {
			return err
		}
		released = entry.ReleasedAmount
		return nil
	})

	if held.String() != "1000" {
		t.Errorf("alice holds %v, want 1000", held)
	}
	if released.Cmp(held) != 0 {
		t.Errorf("released %v, paid %v", released, held)
	}
	if sum, _ := left.Add(held); sum.String() != "1000000" {
		t.Errorf("treasury %v plus alice %v, want 1000000", left, held)
	}
}
