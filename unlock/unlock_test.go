package unlock_test

import (
	"testing"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/types"
	"github.com/xraph/vesting/unlock"
)

const start = 1_700_000_000

func entry(total, released uint64) *account.Entry {
	return &account.Entry{
		Address:          "wallet1",
		TotalEntitlement: types.NewAmount(total),
		ReleasedAmount:   types.NewAmount(released),
	}
}

func TestPending(t *testing.T) {
	started := &config.Config{StartTime: start}
	linear := &curve.Curve{ImmediateFraction: 10, CliffOffset: 0, VestingDuration: 100}

	tests := []struct {
		name  string
		now   uint64
		cfg   *config.Config
		curve *curve.Curve
		entry *account.Entry
		want  string
	}{
		{"not started", start + 500, &config.Config{}, linear, entry(1000, 0), "0"},
		{"before start", start - 10, started, linear, entry(1000, 0), "0"},
		{"at start", start, started, linear, entry(1000, 0), "0"},
		{"half way", start + 50, started, linear, entry(1000, 0), "550"},
		{"full duration", start + 100, started, linear, entry(1000, 0), "1000"},
		{"past duration clamps", start + 10_000, started, linear, entry(1000, 0), "1000"},
		{"subtracts released", start + 50, started, linear, entry(1000, 500), "50"},
		{"released above unlocked clamps", start + 10, started, linear, entry(1000, 900), "0"},
		{"immediate only inside cliff", start + 5, started, &curve.Curve{ImmediateFraction: 25, CliffOffset: 30, VestingDuration: 100}, entry(1000, 0), "250"},
		{"linear after cliff", start + 80, started, &curve.Curve{ImmediateFraction: 25, CliffOffset: 30, VestingDuration: 100}, entry(1000, 0), "625"},
		{"zero duration past cliff", start + 31, started, &curve.Curve{ImmediateFraction: 0, CliffOffset: 30, VestingDuration: 0}, entry(1000, 0), "1000"},
		{"zero duration inside cliff", start + 30, started, &curve.Curve{ImmediateFraction: 0, CliffOffset: 30, VestingDuration: 0}, entry(1000, 0), "0"},
		{"floor rounding", start + 1, started, &curve.Curve{VestingDuration: 3}, entry(10, 0), "3"},
		{"fraction above hundred clamps", start + 1, started, &curve.Curve{ImmediateFraction: 250, VestingDuration: 100}, entry(1000, 0), "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unlock.Pending(tt.now, tt.cfg, tt.curve, tt.entry)
			if got.String() != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnlockedMonotonic(t *testing.T) {
	cfg := &config.Config{StartTime: start}
	curves := []*curve.Curve{
		{ImmediateFraction: 10, CliffOffset: 0, VestingDuration: 100},
		{ImmediateFraction: 0, CliffOffset: 50, VestingDuration: 7},
		{ImmediateFraction: 100, CliffOffset: 0, VestingDuration: 1},
		{ImmediateFraction: 33, CliffOffset: 20, VestingDuration: 0},
	}
	e := entry(999_983, 0)

	for _, crv := range curves {
		prev := types.Amount{}
		for now := uint64(start - 5); now < start+300; now++ {
			got := unlock.Unlocked(now, cfg, crv, e)
			if got.LessThan(prev) {
				t.Fatalf("curve %+v: unlocked decreased at now=%d: %v < %v", *crv, now, got, prev)
			}
			if e.TotalEntitlement.LessThan(got) {
				t.Fatalf("curve %+v: unlocked %v exceeds total at now=%d", *crv, got, now)
			}
			prev = got
		}
	}
}
