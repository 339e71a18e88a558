// Package curve describes the unlock schedule shared by every entry.
package curve

const (
	// DefaultVestingDuration is 90 days, in seconds.
	DefaultVestingDuration = 7_776_000

	// MaxImmediateFraction is the largest accepted immediate percentage.
	MaxImmediateFraction = 100
)

// Curve is the unlock shape. ImmediateFraction is a percentage released as
// soon as the clock starts; the remainder vests linearly over VestingDuration
// seconds once CliffOffset seconds have elapsed.
type Curve struct {
	ImmediateFraction uint64 `json:"immediate_fraction"`
	CliffOffset       uint64 `json:"cliff_offset"`
	VestingDuration   uint64 `json:"vesting_duration"`
}

// Default returns the curve installed at instantiation.
func Default() *Curve {
	return &Curve{VestingDuration: DefaultVestingDuration}
}
