package vesting

import "github.com/xraph/vesting/types"

// Re-export common types so callers don't have to import the types package.

// Amount is re-exported from the types package.
type Amount = types.Amount

// Coin is re-exported from the types package.
type Coin = types.Coin

// Coins is re-exported from the types package.
type Coins = types.Coins

var (
	NewAmount   = types.NewAmount
	ParseAmount = types.ParseAmount
	NewCoin     = types.NewCoin
)
