package vesting

import (
	"context"
	"fmt"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
	"github.com/xraph/vesting/unlock"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetConfig returns the current configuration.
func (e *Engine) GetConfig(ctx context.Context) (*config.Config, error) {
	var cfg *config.Config
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		cfg, err = loadConfig(ctx, r)
		return err
	})
	return cfg, err
}

// GetPrice returns the current price table.
func (e *Engine) GetPrice(ctx context.Context) (*price.Table, error) {
	var t *price.Table
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		t, err = loadPrices(ctx, r)
		return err
	})
	return t, err
}

// GetVestingParameters returns the current unlock curve.
func (e *Engine) GetVestingParameters(ctx context.Context) (*curve.Curve, error) {
	var crv *curve.Curve
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		crv, err = loadCurve(ctx, r)
		return err
	})
	return crv, err
}

// GetUserInfo returns wallet's ledger entry.
func (e *Engine) GetUserInfo(ctx context.Context, wallet string) (*account.Entry, error) {
	var entry *account.Entry
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		entry, err = r.GetEntry(ctx, wallet)
		return err
	})
	if IsNotFound(err) {
		return nil, fmt.Errorf("%w: no ledger entry for %s", ErrNotFound, wallet)
	}
	return entry, err
}

// GetPendingTokens returns what wallet could claim at now.
func (e *Engine) GetPendingTokens(ctx context.Context, wallet string, now uint64) (types.Amount, error) {
	var pending types.Amount
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) error {
		cfg, err := loadConfig(ctx, r)
		if err != nil {
			return err
		}
		crv, err := loadCurve(ctx, r)
		if err != nil {
			return err
		}
		entry, err := r.GetEntry(ctx, wallet)
		if err != nil {
			if IsNotFound(err) {
				return fmt.Errorf("%w: no ledger entry for %s", ErrNotFound, wallet)
			}
			return err
		}
		pending = unlock.Pending(now, cfg, crv, entry)
		return nil
	})
	return pending, err
}

// GetBalance returns wallet's custody balances followed by its balance of the
// target token, denominated by the token's name.
func (e *Engine) GetBalance(ctx context.Context, wallet string) (types.Coins, error) {
	cfg, err := e.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	held, err := e.custody.AllBalances(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("vesting: custody balances: %w", err)
	}
	info, err := e.tokens.TokenInfo(ctx, cfg.TargetToken)
	if err != nil {
		return nil, fmt.Errorf("vesting: token info: %w", err)
	}
	tokenBalance, err := e.tokens.BalanceOf(ctx, cfg.TargetToken, wallet)
	if err != nil {
		return nil, fmt.Errorf("vesting: token balance: %w", err)
	}

	out := make(types.Coins, 0, len(held)+1)
	out = append(out, held...)
	return append(out, types.Coin{Denom: info.Name, Amount: tokenBalance}), nil
}

// GetAllUserInfo lists ledger entries ordered by address.
func (e *Engine) GetAllUserInfo(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	var entries []*account.Entry
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		entries, err = r.ListEntries(ctx, opts)
		return err
	})
	return entries, err
}

// GetTotal returns the sum of every entry's entitlement.
func (e *Engine) GetTotal(ctx context.Context) (types.Amount, error) {
	var total types.Amount
	err := e.store.View(ctx, func(ctx context.Context, r store.Reader) (err error) {
		total, err = r.GetTotal(ctx)
		return err
	})
	return total, err
}
