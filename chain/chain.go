// Package chain defines the external collaborators the vesting engine relies
// on: a token ledger holding the vested token and a custody service holding
// contributed currency. The engine never moves value itself; it emits
// instructions that an Executor hands to these collaborators.
package chain

import (
	"context"
	"errors"

	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/types"
)

var (
	ErrInsufficientFunds = errors.New("chain: insufficient funds")
	ErrUnknownToken      = errors.New("chain: unknown token")
)

// TokenInfo describes a fungible token.
type TokenInfo struct {
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Decimals    uint8        `json:"decimals"`
	TotalSupply types.Amount `json:"total_supply"`
}

// TokenLedger is the service tracking balances of the vested token.
type TokenLedger interface {
	BalanceOf(ctx context.Context, token, account string) (types.Amount, error)
	TransferFrom(ctx context.Context, token, owner, recipient string, amount types.Amount) error
	TokenInfo(ctx context.Context, token string) (*TokenInfo, error)
}

// Custody is the service holding native currency balances.
type Custody interface {
	AllBalances(ctx context.Context, account string) (types.Coins, error)
	Send(ctx context.Context, from, to string, coins types.Coins) error
}

// ──────────────────────────────────────────────────
// Instructions
// ──────────────────────────────────────────────────

// Instruction is a value transfer the engine asks a collaborator to perform.
// The set of variants is closed.
type Instruction interface {
	InstructionID() id.ID
	Kind() string
	instruction()
}

// TokenTransfer moves Amount of Token from Owner to Recipient.
type TokenTransfer struct {
	ID        id.ID        `json:"id"`
	Token     string       `json:"token"`
	Owner     string       `json:"owner"`
	Recipient string       `json:"recipient"`
	Amount    types.Amount `json:"amount"`
}

func (t *TokenTransfer) InstructionID() id.ID { return t.ID }
func (*TokenTransfer) Kind() string           { return "token_transfer" }
func (*TokenTransfer) instruction()           {}

// CoinSend moves Coins from the custody account From to To.
type CoinSend struct {
	ID    id.ID       `json:"id"`
	From  string      `json:"from"`
	To    string      `json:"to"`
	Coins types.Coins `json:"coins"`
}

func (c *CoinSend) InstructionID() id.ID { return c.ID }
func (*CoinSend) Kind() string           { return "coin_send" }
func (*CoinSend) instruction()           {}

// Executor issues instructions. The engine calls Execute after the command's
// ledger mutations have committed. A returned error must mean nothing moved.
type Executor interface {
	Execute(ctx context.Context, ins Instruction) error
}
