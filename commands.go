package vesting

import (
	"context"
	"fmt"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/auth"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/command"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
	"github.com/xraph/vesting/unlock"
)

// Execute dispatches cmd to its handler. Each handler either commits all of
// its writes or none of them, and issues instructions only after its writes
// have committed.
func (e *Engine) Execute(ctx context.Context, env Env, cmd command.Command) (*Response, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrInvalidInput)
	}

	var (
		resp *Response
		err  error
	)
	switch c := cmd.(type) {
	case *command.StartRelease:
		resp, err = e.StartRelease(ctx, env, c)
	case *command.SetConfig:
		resp, err = e.SetConfig(ctx, env, c)
	case *command.SetPrice:
		resp, err = e.SetPrice(ctx, env, c)
	case *command.SetVestingParameters:
		resp, err = e.SetVestingParameters(ctx, env, c)
	case *command.AddUser:
		resp, err = e.AddUser(ctx, env, c)
	case *command.AddUserByOwner:
		resp, err = e.AddUserByOwner(ctx, env, c)
	case *command.ClaimPendingTokens:
		resp, err = e.ClaimPendingTokens(ctx, env, c)
	case *command.Withdraw:
		resp, err = e.Withdraw(ctx, env, c)
	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrInvalidInput, cmd)
	}

	if err != nil {
		e.logger.Debug("command rejected",
			"command", cmd.Name(),
			"sender", env.Sender,
			"error", err,
		)
		e.plugins.EmitCommandRejected(ctx, cmd.Name(), env.Sender, err)
		return nil, err
	}
	return resp, nil
}

// ──────────────────────────────────────────────────
// Administrative commands
// ──────────────────────────────────────────────────

// StartRelease sets the release start time.
func (e *Engine) StartRelease(ctx context.Context, env Env, c *command.StartRelease) (*Response, error) {
	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := e.authorize(ctx, tx, env)
		if err != nil {
			return err
		}
		cfg.StartTime = c.StartTime
		return tx.PutConfig(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("release start time set",
		"start_time", c.StartTime,
		"sender", env.Sender,
	)
	e.plugins.EmitReleaseStarted(ctx, c.StartTime)

	return newResponse("Start Release").with("start_time", fmt.Sprint(c.StartTime)), nil
}

// SetConfig replaces the configuration. Only the current owner may call it,
// whatever the authorization rule.
func (e *Engine) SetConfig(ctx context.Context, env Env, c *command.SetConfig) (*Response, error) {
	next := &config.Config{
		Owner:       c.Owner,
		Treasury:    c.Treasury,
		TargetToken: c.TargetToken,
		StartTime:   c.StartTime,
	}

	var prev *config.Config
	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if !auth.IsOwner(env.Sender, cfg) {
			return ErrUnauthorized
		}
		for _, f := range []struct{ field, value string }{
			{"admin", next.Owner},
			{"treasury", next.Treasury},
			{"token_addr", next.TargetToken},
		} {
			if err := e.validateAddress(f.field, f.value); err != nil {
				return err
			}
		}
		prev = cfg
		return tx.PutConfig(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("config replaced",
		"owner", next.Owner,
		"treasury", next.Treasury,
		"token", next.TargetToken,
		"start_time", next.StartTime,
	)
	e.plugins.EmitConfigChanged(ctx, prev, next)

	return newResponse("SetConfig"), nil
}

// SetPrice replaces the price table.
func (e *Engine) SetPrice(ctx context.Context, env Env, c *command.SetPrice) (*Response, error) {
	var table *price.Table
	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, env); err != nil {
			return err
		}
		if c.Prices == nil || len(c.Prices.Prices) == 0 {
			return ValidationError{Field: "prices", Message: "at least one currency is required"}
		}
		table = c.Prices.Clone()
		return tx.PutPrices(ctx, table)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("price table replaced",
		"currencies", len(table.Prices),
		"sender", env.Sender,
	)
	e.plugins.EmitPricesChanged(ctx, table)

	return newResponse("SetPrice"), nil
}

// SetVestingParameters replaces the unlock curve after validating it.
func (e *Engine) SetVestingParameters(ctx context.Context, env Env, c *command.SetVestingParameters) (*Response, error) {
	crv := c.Curve

	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, env); err != nil {
			return err
		}
		if err := validateCurve(&crv); err != nil {
			return err
		}
		return tx.PutCurve(ctx, &crv)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("vesting curve replaced",
		"immediate_fraction", crv.ImmediateFraction,
		"cliff_offset", crv.CliffOffset,
		"vesting_duration", crv.VestingDuration,
	)
	e.plugins.EmitCurveChanged(ctx, &crv)

	return newResponse("Set Vesting parameters"), nil
}

func validateCurve(c *curve.Curve) error {
	if c.ImmediateFraction > curve.MaxImmediateFraction {
		return ValidationError{
			Field:   "immediate_fraction",
			Message: fmt.Sprintf("%d exceeds %d percent", c.ImmediateFraction, curve.MaxImmediateFraction),
			Err:     ErrInvalidCurve,
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Entitlement commands
// ──────────────────────────────────────────────────

// AddUser converts the sender's first attached fund into entitlement.
func (e *Engine) AddUser(ctx context.Context, env Env, c *command.AddUser) (*Response, error) {
	if len(c.Funds) == 0 || c.Funds[0].Amount.IsZero() {
		return nil, ErrNeedFunds
	}
	fund := c.Funds[0]

	var credited types.Amount
	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		table, err := loadPrices(ctx, tx)
		if err != nil {
			return err
		}
		unitPrice, ok := table.Lookup(fund.Denom)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotSupportToken, fund.Denom)
		}
		credited, err = price.Convert(fund.Amount, unitPrice)
		if err != nil {
			return err
		}
		return credit(ctx, tx, env.Sender, credited)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("contribution credited",
		"wallet", env.Sender,
		"fund", fund.String(),
		"credited", credited.String(),
	)
	e.plugins.EmitContribution(ctx, env.Sender, fund, credited)

	return newResponse("Add User info").
		with("wallet", env.Sender).
		with("amount", credited.String()), nil
}

// AddUserByOwner credits a wallet directly, without currency conversion.
func (e *Engine) AddUserByOwner(ctx context.Context, env Env, c *command.AddUserByOwner) (*Response, error) {
	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, env); err != nil {
			return err
		}
		if err := e.validateAddress("wallet", c.Wallet); err != nil {
			return err
		}
		return credit(ctx, tx, c.Wallet, c.Amount)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("entitlement granted",
		"wallet", c.Wallet,
		"amount", c.Amount.String(),
		"granter", env.Sender,
	)
	e.plugins.EmitGrant(ctx, env.Sender, c.Wallet, c.Amount)

	return newResponse("Add User info").
		with("wallet", c.Wallet).
		with("amount", c.Amount.String()), nil
}

// credit adds amount to wallet's entry, creating it if needed, and to the
// global total.
func credit(ctx context.Context, tx store.Tx, wallet string, amount types.Amount) error {
	entry, err := tx.GetEntry(ctx, wallet)
	switch {
	case IsNotFound(err):
		entry = account.NewEntry(wallet)
	case err != nil:
		return err
	}

	if err := entry.Credit(amount); err != nil {
		return fmt.Errorf("credit %s: %w", wallet, err)
	}

	total, err := tx.GetTotal(ctx)
	if err != nil {
		return err
	}
	total, err = total.Add(amount)
	if err != nil {
		return fmt.Errorf("global total: %w", err)
	}

	if err := tx.PutEntry(ctx, entry); err != nil {
		return err
	}
	return tx.PutTotal(ctx, total)
}

// ClaimPendingTokens releases the sender's unlocked entitlement and issues a
// transfer from the treasury. The release commits first and the transfer is
// issued after it, so no store can roll back past a disbursement. A transfer
// the executor rejects is undone by reverting the release.
func (e *Engine) ClaimPendingTokens(ctx context.Context, env Env, _ *command.ClaimPendingTokens) (*Response, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var transfer *chain.TokenTransfer
	err := e.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		crv, err := loadCurve(ctx, tx)
		if err != nil {
			return err
		}
		entry, err := tx.GetEntry(ctx, env.Sender)
		if err != nil {
			if IsNotFound(err) {
				return fmt.Errorf("%w: no ledger entry for %s", ErrNotFound, env.Sender)
			}
			return err
		}

		pending := unlock.Pending(env.Now, cfg, crv, entry)
		if pending.IsZero() {
			return ErrNoPendingTokens
		}

		balance, err := e.tokens.BalanceOf(ctx, cfg.TargetToken, cfg.Treasury)
		if err != nil {
			return fmt.Errorf("vesting: treasury balance: %w", err)
		}
		if balance.LessThan(pending) {
			return fmt.Errorf("%w: treasury holds %s, claim needs %s", ErrNotEnoughBalance, balance, pending)
		}

		if err := entry.Release(pending); err != nil {
			return err
		}
		transfer = &chain.TokenTransfer{
			ID:        id.NewDisbursementID(),
			Token:     cfg.TargetToken,
			Owner:     cfg.Treasury,
			Recipient: env.Sender,
			Amount:    pending,
		}
		return tx.PutEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	if err := e.executor.Execute(context.WithoutCancel(ctx), transfer); err != nil {
		return nil, e.revertRelease(ctx, transfer, err)
	}

	e.logger.Info("tokens claimed",
		"wallet", env.Sender,
		"amount", transfer.Amount.String(),
		"instruction", transfer.ID.String(),
	)
	e.plugins.EmitClaim(ctx, env.Sender, transfer.Amount, transfer.ID)

	resp := newResponse("Claim pending tokens").
		with("wallet", env.Sender).
		with("amount", transfer.Amount.String())
	resp.Instructions = []chain.Instruction{transfer}
	return resp, nil
}

// revertRelease takes back a committed release whose transfer was rejected.
// The caller holds writeMu.
func (e *Engine) revertRelease(ctx context.Context, transfer *chain.TokenTransfer, cause error) error {
	err := e.store.Update(context.WithoutCancel(ctx), func(ctx context.Context, tx store.Tx) error {
		entry, err := tx.GetEntry(ctx, transfer.Recipient)
		if err != nil {
			return err
		}
		if err := entry.Unrelease(transfer.Amount); err != nil {
			return err
		}
		return tx.PutEntry(ctx, entry)
	})
	if err != nil {
		e.logger.Error("claim needs reconciliation",
			"wallet", transfer.Recipient,
			"amount", transfer.Amount.String(),
			"instruction", transfer.ID.String(),
			"disbursement_error", cause,
			"revert_error", err,
		)
		return fmt.Errorf("%w: %s released %s without disbursement %s: %w (revert: %v)",
			ErrReconciliationRequired, transfer.Recipient, transfer.Amount, transfer.ID, cause, err)
	}
	return fmt.Errorf("vesting: disbursement: %w", cause)
}

// Withdraw sweeps every currency the contract holds to the destination. The
// sweep is issued once the authorization has been read.
func (e *Engine) Withdraw(ctx context.Context, env Env, c *command.Withdraw) (*Response, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var send *chain.CoinSend
	err := e.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, env); err != nil {
			return err
		}
		if c.Destination == "" {
			return fmt.Errorf("%w: empty destination", ErrInvalidAddress)
		}
		held, err := e.custody.AllBalances(ctx, e.contract)
		if err != nil {
			return fmt.Errorf("vesting: custody balances: %w", err)
		}
		coins := nonZero(held)
		if len(coins) == 0 {
			return nil
		}
		send = &chain.CoinSend{
			ID:    id.NewSweepID(),
			From:  e.contract,
			To:    c.Destination,
			Coins: coins,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := newResponse("transfer all coins").with("destination", c.Destination)
	if send == nil {
		e.logger.Info("withdraw found no funds", "destination", c.Destination)
		return resp, nil
	}

	if err := e.executor.Execute(context.WithoutCancel(ctx), send); err != nil {
		return nil, fmt.Errorf("vesting: sweep: %w", err)
	}

	e.logger.Info("funds withdrawn",
		"destination", c.Destination,
		"coins", send.Coins.String(),
		"instruction", send.ID.String(),
	)
	e.plugins.EmitWithdraw(ctx, c.Destination, send.Coins)

	resp.Instructions = []chain.Instruction{send}
	return resp.with("coins", send.Coins.String()), nil
}

// authorize loads the config and applies the guard.
func (e *Engine) authorize(ctx context.Context, tx store.Tx, env Env) (*config.Config, error) {
	cfg, err := loadConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !e.guard.IsAuthorized(env.Sender, cfg) {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func nonZero(coins types.Coins) types.Coins {
	out := make(types.Coins, 0, len(coins))
	for _, c := range coins {
		if !c.Amount.IsZero() {
			out = append(out, c)
		}
	}
	return out
}
