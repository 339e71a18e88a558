// Package observability provides a metrics extension for the vesting engine
// that records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"strconv"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnReleaseStarted  = (*MetricsExtension)(nil)
	_ plugin.OnConfigChanged   = (*MetricsExtension)(nil)
	_ plugin.OnPricesChanged   = (*MetricsExtension)(nil)
	_ plugin.OnCurveChanged    = (*MetricsExtension)(nil)
	_ plugin.OnContribution    = (*MetricsExtension)(nil)
	_ plugin.OnGrant           = (*MetricsExtension)(nil)
	_ plugin.OnClaim           = (*MetricsExtension)(nil)
	_ plugin.OnWithdraw        = (*MetricsExtension)(nil)
	_ plugin.OnCommandRejected = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Administrative metrics
	ReleaseStarted Counter
	ReleasePaused  Counter
	ConfigChanged  Counter
	PricesChanged  Counter
	CurveChanged   Counter

	// Entitlement metrics
	Contributions      Counter
	ContributionAmount Histogram
	Grants             Counter
	GrantAmount        Histogram
	Claims             Counter
	ClaimAmount        Histogram

	// Treasury metrics
	Withdrawals    Counter
	WithdrawnCoins Counter

	// Rejection metrics
	Rejected     Counter
	Unauthorized Counter
	StoreErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ReleaseStarted: factory.Counter("vesting.release.started"),
		ReleasePaused:  factory.Counter("vesting.release.paused"),
		ConfigChanged:  factory.Counter("vesting.config.changed"),
		PricesChanged:  factory.Counter("vesting.prices.changed"),
		CurveChanged:   factory.Counter("vesting.curve.changed"),

		Contributions:      factory.Counter("vesting.contribution.added"),
		ContributionAmount: factory.Histogram("vesting.contribution.credited_amount"),
		Grants:             factory.Counter("vesting.grant.added"),
		GrantAmount:        factory.Histogram("vesting.grant.amount"),
		Claims:             factory.Counter("vesting.tokens.claimed"),
		ClaimAmount:        factory.Histogram("vesting.tokens.claimed_amount"),

		Withdrawals:    factory.Counter("vesting.funds.withdrawn"),
		WithdrawnCoins: factory.Counter("vesting.funds.withdrawn_denoms"),

		Rejected:     factory.Counter("vesting.command.rejected"),
		Unauthorized: factory.Counter("vesting.command.unauthorized"),
		StoreErrors:  factory.Counter("vesting.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnReleaseStarted implements plugin.OnReleaseStarted.
func (m *MetricsExtension) OnReleaseStarted(_ context.Context, startTime uint64) error {
	if startTime == 0 {
		m.ReleasePaused.Inc()
	} else {
		m.ReleaseStarted.Inc()
	}
	return nil
}

// OnConfigChanged implements plugin.OnConfigChanged.
func (m *MetricsExtension) OnConfigChanged(_ context.Context, _, _ *config.Config) error {
	m.ConfigChanged.Inc()
	return nil
}

// OnPricesChanged implements plugin.OnPricesChanged.
func (m *MetricsExtension) OnPricesChanged(_ context.Context, _ *price.Table) error {
	m.PricesChanged.Inc()
	return nil
}

// OnCurveChanged implements plugin.OnCurveChanged.
func (m *MetricsExtension) OnCurveChanged(_ context.Context, _ *curve.Curve) error {
	m.CurveChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnContribution implements plugin.OnContribution.
func (m *MetricsExtension) OnContribution(_ context.Context, _ string, _ types.Coin, credited types.Amount) error {
	m.Contributions.Inc()
	m.ContributionAmount.Observe(approx(credited))
	return nil
}

// OnGrant implements plugin.OnGrant.
func (m *MetricsExtension) OnGrant(_ context.Context, _, _ string, amount types.Amount) error {
	m.Grants.Inc()
	m.GrantAmount.Observe(approx(amount))
	return nil
}

// OnClaim implements plugin.OnClaim.
func (m *MetricsExtension) OnClaim(_ context.Context, _ string, amount types.Amount, _ id.ID) error {
	m.Claims.Inc()
	m.ClaimAmount.Observe(approx(amount))
	return nil
}

// OnWithdraw implements plugin.OnWithdraw.
func (m *MetricsExtension) OnWithdraw(_ context.Context, _ string, coins types.Coins) error {
	m.Withdrawals.Inc()
	m.WithdrawnCoins.Add(float64(len(coins)))
	return nil
}

// OnCommandRejected implements plugin.OnCommandRejected.
func (m *MetricsExtension) OnCommandRejected(_ context.Context, _, _ string, err error) error {
	m.Rejected.Inc()
	switch {
	case vesting.IsAuthError(err):
		m.Unauthorized.Inc()
	case errors.Is(err, vesting.ErrTransactionFailed), errors.Is(err, vesting.ErrStoreClosed):
		m.StoreErrors.Inc()
	}
	return nil
}

// approx converts an amount to float64 for histograms; precision loss above
// 2^53 is acceptable there.
func approx(a types.Amount) float64 {
	if u, ok := a.Uint64(); ok {
		return float64(u)
	}
	f, _ := strconv.ParseFloat(a.String(), 64) //nolint:errcheck // decimal digits always parse
	return f
}
