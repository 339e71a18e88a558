// Package vesting provides a token-sale vesting ledger for Go applications.
//
// Contributors pay in accepted currencies and are credited an entitlement in a
// target token; the entitlement unlocks over time along a configurable curve
// (an immediate fraction, a cliff, then linear release) and is claimed in
// increments, paid out of a treasury.
//
// Vesting is designed as a library, not a service. The engine decides what is
// owed and issues instructions; it never moves currency itself. It provides:
//
//   - 256-bit unsigned arithmetic for every amount
//   - One atomic store transaction per command, with memory, SQLite,
//     PostgreSQL, MongoDB and Redis back ends
//   - Permissive or owner-only administration
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/vesting"
//	    "github.com/xraph/vesting/store/sqlite"
//	)
//
//	store, err := sqlite.Open("vesting.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := vesting.New(store, tokens, custody)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	_, err = e.Instantiate(ctx, vesting.Env{Sender: owner}, vesting.InstantiateParams{
//	    Treasury:    treasury,
//	    TargetToken: token,
//	})
//
// # Commands
//
// Every state change is a command executed at a block time supplied by the
// host:
//
//	env := vesting.Env{Sender: wallet, Now: blockTime}
//	resp, err := e.Execute(ctx, env, &command.ClaimPendingTokens{})
//
// A successful response carries the attributes of what happened and the
// instructions (token transfers, coin sends) the host must carry out. Unless
// WithExecutor is given, instructions run against the TokenLedger and Custody
// passed to New, inside the command's transaction.
//
// # Unlocking
//
// Before release starts nothing is claimable. Afterwards a wallet's unlocked
// amount is the immediate fraction of its entitlement, plus a linear share of
// the remainder once the cliff has passed, capped at the entitlement:
//
//	head     = total * immediate / 100
//	unlocked = head + (total - head) * (elapsed - cliff) / duration
//
// Pending tokens are unlocked minus already released.
//
// # TypeID
//
// Instructions and command invocations are identified by TypeIDs:
//
//	cmd_01h2xcejqtf2nbrexx3vqjhp41  // Command invocation
//	disb_01h2xcejqtf2nbrexx3vqjhp41 // Disbursement
package vesting
