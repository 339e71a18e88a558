package chain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/types"
)

func TestDispatcherTokenTransfer(t *testing.T) {
	ctx := context.Background()
	mc := memchain.New()
	mc.CreateToken("aqua", chain.TokenInfo{Name: "Aqua", Symbol: "AQUA", Decimals: 6}, "treasury", types.NewAmount(1000))
	d := chain.NewDispatcher(mc, mc)

	err := d.Execute(ctx, &chain.TokenTransfer{
		ID:        id.NewDisbursementID(),
		Token:     "aqua",
		Owner:     "treasury",
		Recipient: "alice",
		Amount:    types.NewAmount(400),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _ := mc.BalanceOf(ctx, "aqua", "alice")
	if got.String() != "400" {
		t.Errorf("got alice balance %v, want 400", got)
	}
	got, _ = mc.BalanceOf(ctx, "aqua", "treasury")
	if got.String() != "600" {
		t.Errorf("got treasury balance %v, want 600", got)
	}

	err = d.Execute(ctx, &chain.TokenTransfer{ID: id.NewDisbursementID(), Token: "aqua", Owner: "treasury", Recipient: "bob", Amount: types.NewAmount(601)})
	if !errors.Is(err, chain.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestDispatcherCoinSend(t *testing.T) {
	ctx := context.Background()
	mc := memchain.New()
	if err := mc.Fund("contract", types.Coins{types.NewCoin(10, "ujunox"), types.NewCoin(3, "uusdc")}); err != nil {
		t.Fatal(err)
	}
	d := chain.NewDispatcher(mc, mc)

	held, _ := mc.AllBalances(ctx, "contract")
	if err := d.Execute(ctx, &chain.CoinSend{ID: id.NewSweepID(), From: "contract", To: "dest", Coins: held}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	left, _ := mc.AllBalances(ctx, "contract")
	if len(left) != 0 {
		t.Errorf("got %v left in contract, want none", left)
	}
	dest, _ := mc.AllBalances(ctx, "dest")
	if dest.String() != "10ujunox,3uusdc" {
		t.Errorf("got dest %v, want 10ujunox,3uusdc", dest)
	}
}

func TestDispatcherFailure(t *testing.T) {
	mc := memchain.New()
	boom := errors.New("boom")
	mc.FailTransfers(boom)

	err := chain.NewDispatcher(mc, mc).Execute(context.Background(), &chain.CoinSend{ID: id.NewSweepID(), From: "a", To: "b"})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}

func TestOutbox(t *testing.T) {
	o := chain.NewOutbox()
	ins := &chain.TokenTransfer{ID: id.NewDisbursementID()}
	if err := o.Execute(context.Background(), ins); err != nil {
		t.Fatal(err)
	}
	drained := o.Drain()
	if len(drained) != 1 || drained[0].InstructionID().String() != ins.ID.String() {
		t.Errorf("got %v, want the queued transfer", drained)
	}
	if len(o.Drain()) != 0 {
		t.Error("expected empty outbox after drain")
	}
}
