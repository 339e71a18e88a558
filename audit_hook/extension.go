// Package audithook bridges vesting lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// particular audit store. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnInstantiated    = (*Extension)(nil)
	_ plugin.OnReleaseStarted  = (*Extension)(nil)
	_ plugin.OnConfigChanged   = (*Extension)(nil)
	_ plugin.OnPricesChanged   = (*Extension)(nil)
	_ plugin.OnCurveChanged    = (*Extension)(nil)
	_ plugin.OnContribution    = (*Extension)(nil)
	_ plugin.OnGrant           = (*Extension)(nil)
	_ plugin.OnClaim           = (*Extension)(nil)
	_ plugin.OnWithdraw        = (*Extension)(nil)
	_ plugin.OnCommandRejected = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges vesting lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnInstantiated implements plugin.OnInstantiated.
func (e *Extension) OnInstantiated(ctx context.Context, cfg *config.Config) error {
	return e.record(ctx, ActionInstantiated, SeverityInfo, OutcomeSuccess,
		ResourceConfig, cfg.TargetToken, CategoryAdmin, nil,
		"owner", cfg.Owner,
		"treasury", cfg.Treasury,
	)
}

// OnReleaseStarted implements plugin.OnReleaseStarted.
func (e *Extension) OnReleaseStarted(ctx context.Context, startTime uint64) error {
	action, severity := ActionReleaseStarted, SeverityInfo
	if startTime == 0 {
		action, severity = ActionReleasePaused, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceConfig, "", CategoryAdmin, nil,
		"start_time", startTime,
	)
}

// OnConfigChanged implements plugin.OnConfigChanged. An ownership change is
// recorded as critical.
func (e *Extension) OnConfigChanged(ctx context.Context, oldCfg, newCfg *config.Config) error {
	severity := SeverityInfo
	if oldCfg != nil && oldCfg.Owner != newCfg.Owner {
		severity = SeverityCritical
	}
	kv := []any{
		"owner", newCfg.Owner,
		"treasury", newCfg.Treasury,
		"token", newCfg.TargetToken,
		"start_time", newCfg.StartTime,
	}
	if oldCfg != nil {
		kv = append(kv, "previous_owner", oldCfg.Owner)
	}
	return e.record(ctx, ActionConfigUpdated, severity, OutcomeSuccess,
		ResourceConfig, "", CategoryAdmin, nil, kv...)
}

// OnPricesChanged implements plugin.OnPricesChanged.
func (e *Extension) OnPricesChanged(ctx context.Context, table *price.Table) error {
	prices := make(map[string]string, len(table.Prices))
	for denom, p := range table.Prices {
		prices[denom] = p.String()
	}
	return e.record(ctx, ActionPricesUpdated, SeverityInfo, OutcomeSuccess,
		ResourcePrices, "", CategoryAdmin, nil,
		"prices", prices,
	)
}

// OnCurveChanged implements plugin.OnCurveChanged.
func (e *Extension) OnCurveChanged(ctx context.Context, crv *curve.Curve) error {
	return e.record(ctx, ActionCurveUpdated, SeverityInfo, OutcomeSuccess,
		ResourceCurve, "", CategoryAdmin, nil,
		"immediate_fraction", crv.ImmediateFraction,
		"cliff_offset", crv.CliffOffset,
		"vesting_duration", crv.VestingDuration,
	)
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnContribution implements plugin.OnContribution.
func (e *Extension) OnContribution(ctx context.Context, wallet string, fund types.Coin, credited types.Amount) error {
	return e.record(ctx, ActionContributionAdded, SeverityInfo, OutcomeSuccess,
		ResourceEntry, wallet, CategoryEntitlement, nil,
		"fund", fund.String(),
		"credited", credited.String(),
	)
}

// OnGrant implements plugin.OnGrant.
func (e *Extension) OnGrant(ctx context.Context, granter, wallet string, amount types.Amount) error {
	return e.record(ctx, ActionGrantAdded, SeverityInfo, OutcomeSuccess,
		ResourceEntry, wallet, CategoryEntitlement, nil,
		"granter", granter,
		"amount", amount.String(),
	)
}

// OnClaim implements plugin.OnClaim.
func (e *Extension) OnClaim(ctx context.Context, wallet string, amount types.Amount, instructionID id.ID) error {
	return e.record(ctx, ActionTokensClaimed, SeverityInfo, OutcomeSuccess,
		ResourceEntry, wallet, CategoryEntitlement, nil,
		"amount", amount.String(),
		"instruction_id", instructionID.String(),
	)
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnWithdraw implements plugin.OnWithdraw.
func (e *Extension) OnWithdraw(ctx context.Context, destination string, coins types.Coins) error {
	return e.record(ctx, ActionFundsWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceFunds, destination, CategoryTreasury, nil,
		"coins", coins.String(),
	)
}

// OnCommandRejected implements plugin.OnCommandRejected. Authorization
// failures are recorded as warnings, everything else as info.
func (e *Extension) OnCommandRejected(ctx context.Context, command, sender string, err error) error {
	severity, category := SeverityInfo, CategoryEntitlement
	if errors.Is(err, vesting.ErrUnauthorized) {
		severity, category = SeverityWarning, CategoryAccess
	}
	return e.record(ctx, ActionCommandRejected, severity, OutcomeFailure,
		ResourceCommand, command, category, err,
		"sender", sender,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
