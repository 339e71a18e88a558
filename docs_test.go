package vesting_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/command"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/types"
)

// TestDocumentationExamples walks the package documentation end to end.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		mc := memchain.New()
		mc.CreateToken(token, chain.TokenInfo{Name: "Aqua", Symbol: "AQUA", Decimals: 6}, treasury, types.NewAmount(1_000_000))

		e := vesting.New(memory.New(), mc, mc, vesting.WithLogger(slog.Default()))
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		if _, err := e.Instantiate(ctx, vesting.Env{Sender: owner}, vesting.InstantiateParams{
			Treasury:    treasury,
			TargetToken: token,
		}); err != nil {
			t.Fatal(err)
		}

		// 20% at start, a 10s cliff, then linear over 80s.
		admin := vesting.Env{Sender: owner, Now: start}
		for _, cmd := range []command.Command{
			&command.SetVestingParameters{Curve: curve.Curve{ImmediateFraction: 20, CliffOffset: 10, VestingDuration: 80}},
			&command.AddUserByOwner{Wallet: alice, Amount: types.NewAmount(1000)},
			&command.StartRelease{StartTime: start},
		} {
			if _, err := e.Execute(ctx, admin, cmd); err != nil {
				t.Fatalf("%s: %v", cmd.Name(), err)
			}
		}

		tests := []struct {
			elapsed uint64
			want    string
		}{
			{0, "0"},
			{5, "200"},
			{10, "200"},
			{50, "600"},
			{90, "1000"},
			{1000, "1000"},
		}
		for _, tt := range tests {
			got, err := e.GetPendingTokens(ctx, alice, start+tt.elapsed)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("pending at +%ds: got %v, want %v", tt.elapsed, got, tt.want)
			}
		}

		resp, err := e.Execute(ctx, vesting.Env{Sender: alice, Now: start + 50}, &command.ClaimPendingTokens{})
		if err != nil {
			t.Fatal(err)
		}
		if amt, _ := resp.Attribute("amount"); amt != "600" {
			t.Errorf("claimed %v, want 600", amt)
		}
		if len(resp.Instructions) != 1 || resp.Instructions[0].Kind() != "token_transfer" {
			t.Errorf("got instructions %v", resp.Instructions)
		}
	})
}
