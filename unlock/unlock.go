// Package unlock computes how much of an entry's entitlement is claimable at a
// point in time. It is pure: the caller supplies the time.
package unlock

import (
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/types"
)

var hundred = types.NewAmount(100)

// Unlocked returns the portion of e's entitlement unlocked at now. The result
// is non-decreasing in now and never exceeds e.TotalEntitlement.
func Unlocked(now uint64, cfg *config.Config, crv *curve.Curve, e *account.Entry) types.Amount {
	if !cfg.Started() || now <= cfg.StartTime {
		return types.Amount{}
	}
	elapsed := now - cfg.StartTime
	total := e.TotalEntitlement

	// immediate <= total even for an unvalidated curve.
	immediate, err := total.MulDiv(types.NewAmount(crv.ImmediateFraction), hundred)
	if err != nil {
		immediate = total
	}
	immediate = immediate.Min(total)

	if elapsed <= crv.CliffOffset {
		return immediate
	}
	if crv.VestingDuration == 0 {
		return total
	}

	remainder := total.SaturatingSub(immediate)
	linear, err := remainder.MulDiv(types.NewAmount(elapsed-crv.CliffOffset), types.NewAmount(crv.VestingDuration))
	if err != nil {
		return total
	}
	unlocked, err := immediate.Add(linear)
	if err != nil {
		return total
	}
	return unlocked.Min(total)
}

// Pending returns the claimable amount: unlocked minus already released,
// clamped at zero.
func Pending(now uint64, cfg *config.Config, crv *curve.Curve, e *account.Entry) types.Amount {
	return Unlocked(now, cfg, crv, e).SaturatingSub(e.ReleasedAmount)
}
