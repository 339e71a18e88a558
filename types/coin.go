package types

import "strings"

// Coin is an amount of a single currency denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

// NewCoin creates a Coin.
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: NewAmount(amount)}
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// Coins is an ordered set of coins, as held by a custody account.
type Coins []Coin

// AmountOf returns the amount of denom, or zero.
func (cs Coins) AmountOf(denom string) Amount {
	for _, c := range cs {
		if c.Denom == denom {
			return c.Amount
		}
	}
	return Amount{}
}

// IsZero reports whether every coin is zero (or the set is empty).
func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if !c.Amount.IsZero() {
			return false
		}
	}
	return true
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
