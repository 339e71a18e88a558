// Package plugin provides an extensible plugin system for the vesting engine.
// Plugins hook into lifecycle events after the triggering command commits;
// a hook can observe but never veto or roll back a command.
package plugin

import (
	"context"

	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnInstantiated is called once the default state has been written.
type OnInstantiated interface {
	Plugin
	OnInstantiated(ctx context.Context, cfg *config.Config) error
}

// OnReleaseStarted is called when the release start time is set. A zero
// startTime means unlocking was paused.
type OnReleaseStarted interface {
	Plugin
	OnReleaseStarted(ctx context.Context, startTime uint64) error
}

// OnConfigChanged is called when the configuration is replaced.
type OnConfigChanged interface {
	Plugin
	OnConfigChanged(ctx context.Context, oldCfg, newCfg *config.Config) error
}

// OnPricesChanged is called when the price table is replaced.
type OnPricesChanged interface {
	Plugin
	OnPricesChanged(ctx context.Context, table *price.Table) error
}

// OnCurveChanged is called when the vesting curve is replaced.
type OnCurveChanged interface {
	Plugin
	OnCurveChanged(ctx context.Context, crv *curve.Curve) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnContribution is called after a contribution is converted and credited.
type OnContribution interface {
	Plugin
	OnContribution(ctx context.Context, wallet string, fund types.Coin, credited types.Amount) error
}

// OnGrant is called after an administrator credits a wallet directly.
type OnGrant interface {
	Plugin
	OnGrant(ctx context.Context, granter, wallet string, amount types.Amount) error
}

// OnClaim is called after pending tokens are released and the disbursement
// instruction was issued.
type OnClaim interface {
	Plugin
	OnClaim(ctx context.Context, wallet string, amount types.Amount, instructionID id.ID) error
}

// OnWithdraw is called after collected currency is swept.
type OnWithdraw interface {
	Plugin
	OnWithdraw(ctx context.Context, destination string, coins types.Coins) error
}

// OnCommandRejected is called when a command fails. Nothing was committed.
type OnCommandRejected interface {
	Plugin
	OnCommandRejected(ctx context.Context, command, sender string, err error) error
}
