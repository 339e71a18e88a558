package price_test

import (
	"testing"

	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		price  uint64
		want   string
	}{
		{"usdc", 3, price.DefaultUSDCPrice, "100"},
		{"native floors", 1, price.DefaultNativePrice, "176"},
		{"below one unit", 1, 29, "0"},
		{"zero", 0, price.DefaultUSDCPrice, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := price.Convert(types.NewAmount(tt.amount), types.NewAmount(tt.price))
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableClone(t *testing.T) {
	orig := price.Default()
	cp := orig.Clone()
	cp.Prices[price.DenomUSDC] = types.NewAmount(1)

	if p, _ := orig.Lookup(price.DenomUSDC); p.String() != "1000" {
		t.Errorf("clone aliased the original: got %v", p)
	}
	if _, ok := orig.Lookup("uatom"); ok {
		t.Error("unexpected uatom price")
	}
}
