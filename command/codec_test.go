package command_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/xraph/vesting/command"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want command.Command
	}{
		{"start release string", `{"start_release":{"start_time":"1700000000"}}`, &command.StartRelease{StartTime: 1_700_000_000}},
		{"start release number", `{"start_release":{"start_time":42}}`, &command.StartRelease{StartTime: 42}},
		{"set config", `{"set_config":{"admin":"o","treasury":"t","token_addr":"tok","start_time":"5"}}`,
			&command.SetConfig{Owner: "o", Treasury: "t", TargetToken: "tok", StartTime: 5}},
		{"set price canonical", `{"set_price":{"usdc_price":"1000","juno_price":"5280"}}`,
			command.NewSetPrice(types.NewAmount(1000), types.NewAmount(5280))},
		{"set vesting parameters", `{"set_vesting_parameters":{"params":{"soon":"10","after":"0","period":"100"}}}`,
			&command.SetVestingParameters{Curve: curve.Curve{ImmediateFraction: 10, VestingDuration: 100}}},
		{"add user", `{"add_user":{}}`, &command.AddUser{}},
		{"add user by owner", `{"add_user_by_owner":{"wallet":"w","amount":"77"}}`,
			&command.AddUserByOwner{Wallet: "w", Amount: types.NewAmount(77)}},
		{"claim", `{"claim_pending_tokens":{}}`, &command.ClaimPendingTokens{}},
		{"withdraw", `{"withdraw":{"wallet":"dest"}}`, &command.Withdraw{Destination: "dest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := command.Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `nope`},
		{"two tags", `{"add_user":{},"claim_pending_tokens":{}}`},
		{"no tags", `{}`},
		{"start time too wide", `{"start_release":{"start_time":"18446744073709551616"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := command.Decode([]byte(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := command.Decode([]byte(`{"mint":{}}`)); !errors.Is(err, command.ErrUnknownCommand) {
		t.Errorf("got %v, want ErrUnknownCommand", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cmds := []command.Command{
		&command.StartRelease{StartTime: 9},
		&command.SetConfig{Owner: "o", Treasury: "t", TargetToken: "tok", StartTime: 1},
		&command.SetPrice{Prices: &price.Table{Prices: map[string]types.Amount{price.DenomNative: types.NewAmount(3)}}},
		&command.SetVestingParameters{Curve: curve.Curve{ImmediateFraction: 5, CliffOffset: 6, VestingDuration: 7}},
		&command.AddUser{Funds: types.Coins{types.NewCoin(100, price.DenomUSDC)}},
		&command.AddUserByOwner{Wallet: "w", Amount: types.NewAmount(8)},
		&command.ClaimPendingTokens{},
		&command.Withdraw{Destination: "dest"},
	}

	for _, cmd := range cmds {
		t.Run(cmd.Name(), func(t *testing.T) {
			data, err := command.Encode(cmd)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := command.Decode(data)
			if err != nil {
				t.Fatalf("Decode(%s): %v", data, err)
			}
			if !reflect.DeepEqual(got, cmd) {
				t.Errorf("got %#v, want %#v", got, cmd)
			}
		})
	}
}

func TestSchemaAcceptsEncoded(t *testing.T) {
	schema, err := command.CompileSchema()
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}

	valid := []string{
		`{"start_release":{"start_time":"1"}}`,
		`{"set_price":{"usdc_price":"1000","juno_price":5280}}`,
		`{"claim_pending_tokens":{}}`,
		`{"add_user":{"funds":[{"denom":"ujunox","amount":"10"}]}}`,
	}
	invalid := []string{
		`{"start_release":{}}`,
		`{"start_release":{"start_time":"-1"}}`,
		`{"withdraw":{"wallet":""}}`,
		`{"mint":{}}`,
		`{"add_user":{},"withdraw":{"wallet":"x"}}`,
	}

	for _, in := range valid {
		var v any
		_ = json.Unmarshal([]byte(in), &v)
		if err := schema.Validate(v); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", in, err)
		}
	}
	for _, in := range invalid {
		var v any
		_ = json.Unmarshal([]byte(in), &v)
		if err := schema.Validate(v); err == nil {
			t.Errorf("Validate(%s) = nil, want error", in)
		}
	}
}
