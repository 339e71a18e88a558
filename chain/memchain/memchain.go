// Package memchain is an in-memory token ledger and custody service for tests
// and local development.
package memchain

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/types"
)

type token struct {
	info     chain.TokenInfo
	balances map[string]types.Amount
}

// Chain implements chain.TokenLedger and chain.Custody.
type Chain struct {
	mu      sync.Mutex
	tokens  map[string]*token
	bank    map[string]map[string]types.Amount
	failErr error
}

var (
	_ chain.TokenLedger = (*Chain)(nil)
	_ chain.Custody     = (*Chain)(nil)
)

// New creates an empty Chain.
func New() *Chain {
	return &Chain{
		tokens: make(map[string]*token),
		bank:   make(map[string]map[string]types.Amount),
	}
}

// CreateToken registers a token and mints supply to account.
func (c *Chain) CreateToken(addr string, info chain.TokenInfo, account string, supply types.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info.TotalSupply = supply
	c.tokens[addr] = &token{
		info:     info,
		balances: map[string]types.Amount{account: supply},
	}
}

// Fund credits coins to account's custody balance.
func (c *Chain) Fund(account string, coins types.Coins) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credit(account, coins)
}

// FailTransfers makes every subsequent transfer and send fail with err until
// called again with nil.
func (c *Chain) FailTransfers(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = err
}

func (c *Chain) BalanceOf(_ context.Context, tokenAddr, account string) (types.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return types.Amount{}, fmt.Errorf("%w: %s", chain.ErrUnknownToken, tokenAddr)
	}
	return t.balances[account], nil
}

func (c *Chain) TransferFrom(_ context.Context, tokenAddr, owner, recipient string, amount types.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", chain.ErrUnknownToken, tokenAddr)
	}
	bal := t.balances[owner]
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", chain.ErrInsufficientFunds, owner, bal, amount)
	}
	credited, err := t.balances[recipient].Add(amount)
	if err != nil {
		return err
	}
	t.balances[owner] = bal.SaturatingSub(amount)
	t.balances[recipient] = credited
	return nil
}

func (c *Chain) TokenInfo(_ context.Context, tokenAddr string) (*chain.TokenInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownToken, tokenAddr)
	}
	info := t.info
	return &info, nil
}

// AllBalances returns account's non-zero balances sorted by denom.
func (c *Chain) AllBalances(_ context.Context, account string) (types.Coins, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := types.Coins{}
	for denom, amt := range c.bank[account] {
		if !amt.IsZero() {
			out = append(out, types.Coin{Denom: denom, Amount: amt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

func (c *Chain) Send(_ context.Context, from, to string, coins types.Coins) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	held := c.account(from)
	for _, coin := range coins {
		if held[coin.Denom].LessThan(coin.Amount) {
			return fmt.Errorf("%w: %s holds %s%s", chain.ErrInsufficientFunds, from, held[coin.Denom], coin.Denom)
		}
	}
	if err := c.credit(to, coins); err != nil {
		return err
	}
	for _, coin := range coins {
		held[coin.Denom] = held[coin.Denom].SaturatingSub(coin.Amount)
	}
	return nil
}

func (c *Chain) account(addr string) map[string]types.Amount {
	held, ok := c.bank[addr]
	if !ok {
		held = make(map[string]types.Amount)
		c.bank[addr] = held
	}
	return held
}

// credit applies coins to account, or nothing if any denom would overflow.
func (c *Chain) credit(account string, coins types.Coins) error {
	held := c.account(account)
	sums := make(map[string]types.Amount, len(coins))
	for _, coin := range coins {
		base, ok := sums[coin.Denom]
		if !ok {
			base = held[coin.Denom]
		}
		sum, err := base.Add(coin.Amount)
		if err != nil {
			return err
		}
		sums[coin.Denom] = sum
	}
	for denom, sum := range sums {
		held[denom] = sum
	}
	return nil
}
