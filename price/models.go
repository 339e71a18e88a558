// Package price holds the conversion table from contribution currencies to
// entitlement units.
package price

import "github.com/xraph/vesting/types"

// Canonical contribution currencies.
const (
	DenomUSDC   = "ibc/EAC38D55372F38F1AFD68DF7FE9EF762DCF69F26520643CF3F9D292A738D8034"
	DenomNative = "ujunox"
)

const (
	// ReferencePrice is the fixed divisor applied to every conversion.
	ReferencePrice = 30

	DefaultUSDCPrice   = 1000
	DefaultNativePrice = 5280
)

// Table maps a currency denom to its unit price.
type Table struct {
	Prices map[string]types.Amount `json:"prices"`
}

// NewTable builds the canonical two-currency table.
func NewTable(usdc, native types.Amount) *Table {
	return &Table{Prices: map[string]types.Amount{
		DenomUSDC:   usdc,
		DenomNative: native,
	}}
}

// Default returns the table installed at instantiation.
func Default() *Table {
	return NewTable(types.NewAmount(DefaultUSDCPrice), types.NewAmount(DefaultNativePrice))
}

// Lookup returns the price for denom.
func (t *Table) Lookup(denom string) (types.Amount, bool) {
	p, ok := t.Prices[denom]
	return p, ok
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Prices: make(map[string]types.Amount, len(t.Prices))}
	for k, v := range t.Prices {
		out.Prices[k] = v
	}
	return out
}

// Convert returns floor(amount * unitPrice / ReferencePrice).
func Convert(amount, unitPrice types.Amount) (types.Amount, error) {
	return amount.MulDiv(unitPrice, types.NewAmount(ReferencePrice))
}
