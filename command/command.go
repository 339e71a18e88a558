// Package command defines the closed set of state-changing commands the
// vesting engine accepts, and their JSON wire form.
package command

import (
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Command is one of the variants below. The set is sealed.
type Command interface {
	// Name is the variant's wire tag, e.g. "start_release".
	Name() string
	command()
}

// Wire tags.
const (
	NameStartRelease         = "start_release"
	NameSetConfig            = "set_config"
	NameSetPrice             = "set_price"
	NameSetVestingParameters = "set_vesting_parameters"
	NameAddUser              = "add_user"
	NameAddUserByOwner       = "add_user_by_owner"
	NameClaimPendingTokens   = "claim_pending_tokens"
	NameWithdraw             = "withdraw"
)

// StartRelease sets the release start time. Zero pauses unlocking.
type StartRelease struct {
	StartTime uint64
}

// SetConfig replaces the whole configuration. Owner only.
type SetConfig struct {
	Owner       string
	Treasury    string
	TargetToken string
	StartTime   uint64
}

// SetPrice replaces the price table wholesale.
type SetPrice struct {
	Prices *price.Table
}

// NewSetPrice builds a SetPrice for the canonical two currencies.
func NewSetPrice(usdc, native types.Amount) *SetPrice {
	return &SetPrice{Prices: price.NewTable(usdc, native)}
}

// SetVestingParameters replaces the unlock curve.
type SetVestingParameters struct {
	Curve curve.Curve
}

// AddUser converts the first attached fund into entitlement for the sender.
type AddUser struct {
	Funds types.Coins
}

// AddUserByOwner credits Wallet with Amount directly.
type AddUserByOwner struct {
	Wallet string
	Amount types.Amount
}

// ClaimPendingTokens disburses the sender's unlocked entitlement.
type ClaimPendingTokens struct{}

// Withdraw sweeps every currency balance held by the engine to Destination.
type Withdraw struct {
	Destination string
}

func (*StartRelease) Name() string         { return NameStartRelease }
func (*SetConfig) Name() string            { return NameSetConfig }
func (*SetPrice) Name() string             { return NameSetPrice }
func (*SetVestingParameters) Name() string { return NameSetVestingParameters }
func (*AddUser) Name() string              { return NameAddUser }
func (*AddUserByOwner) Name() string       { return NameAddUserByOwner }
func (*ClaimPendingTokens) Name() string   { return NameClaimPendingTokens }
func (*Withdraw) Name() string             { return NameWithdraw }

func (*StartRelease) command()         {}
func (*SetConfig) command()            {}
func (*SetPrice) command()             {}
func (*SetVestingParameters) command() {}
func (*AddUser) command()              {}
func (*AddUserByOwner) command()       {}
func (*ClaimPendingTokens) command()   {}
func (*Withdraw) command()             {}
