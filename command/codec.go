package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// ErrUnknownCommand is returned by Decode for an unrecognised tag.
var ErrUnknownCommand = errors.New("command: unknown command")

// Wire bodies. Integers travel as decimal strings or bare numbers.

type startReleaseMsg struct {
	StartTime types.Amount `json:"start_time"`
}

type setConfigMsg struct {
	Admin     string       `json:"admin"`
	Treasury  string       `json:"treasury"`
	TokenAddr string       `json:"token_addr"`
	StartTime types.Amount `json:"start_time"`
}

type setPriceMsg struct {
	USDCPrice *types.Amount           `json:"usdc_price,omitempty"`
	JunoPrice *types.Amount           `json:"juno_price,omitempty"`
	Prices    map[string]types.Amount `json:"prices,omitempty"`
}

type vestingParamsMsg struct {
	Soon   types.Amount `json:"soon"`
	After  types.Amount `json:"after"`
	Period types.Amount `json:"period"`
}

type setVestingParametersMsg struct {
	Params vestingParamsMsg `json:"params"`
}

type addUserMsg struct {
	Funds types.Coins `json:"funds,omitempty"`
}

type addUserByOwnerMsg struct {
	Wallet string       `json:"wallet"`
	Amount types.Amount `json:"amount"`
}

type withdrawMsg struct {
	Wallet string `json:"wallet"`
}

// Decode parses the externally tagged form, e.g.
// {"start_release": {"start_time": "1700000000"}}.
func Decode(data []byte) (Command, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("command: decode: %w", err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("command: decode: expected exactly one tag, got %d", len(envelope))
	}

	for tag, body := range envelope {
		return decodeBody(tag, body)
	}
	return nil, ErrUnknownCommand
}

func decodeBody(tag string, body json.RawMessage) (Command, error) {
	switch tag {
	case NameStartRelease:
		var m startReleaseMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		start, err := toUint64("start_time", m.StartTime)
		if err != nil {
			return nil, err
		}
		return &StartRelease{StartTime: start}, nil

	case NameSetConfig:
		var m setConfigMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		start, err := toUint64("start_time", m.StartTime)
		if err != nil {
			return nil, err
		}
		return &SetConfig{Owner: m.Admin, Treasury: m.Treasury, TargetToken: m.TokenAddr, StartTime: start}, nil

	case NameSetPrice:
		var m setPriceMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		table := &price.Table{Prices: make(map[string]types.Amount, len(m.Prices)+2)}
		for denom, p := range m.Prices {
			table.Prices[denom] = p
		}
		if m.USDCPrice != nil {
			table.Prices[price.DenomUSDC] = *m.USDCPrice
		}
		if m.JunoPrice != nil {
			table.Prices[price.DenomNative] = *m.JunoPrice
		}
		return &SetPrice{Prices: table}, nil

	case NameSetVestingParameters:
		var m setVestingParametersMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		var c curve.Curve
		var err error
		if c.ImmediateFraction, err = toUint64("params.soon", m.Params.Soon); err != nil {
			return nil, err
		}
		if c.CliffOffset, err = toUint64("params.after", m.Params.After); err != nil {
			return nil, err
		}
		if c.VestingDuration, err = toUint64("params.period", m.Params.Period); err != nil {
			return nil, err
		}
		return &SetVestingParameters{Curve: c}, nil

	case NameAddUser:
		var m addUserMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		return &AddUser{Funds: m.Funds}, nil

	case NameAddUserByOwner:
		var m addUserByOwnerMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		return &AddUserByOwner{Wallet: m.Wallet, Amount: m.Amount}, nil

	case NameClaimPendingTokens:
		return &ClaimPendingTokens{}, nil

	case NameWithdraw:
		var m withdrawMsg
		if err := unmarshal(tag, body, &m); err != nil {
			return nil, err
		}
		return &Withdraw{Destination: m.Wallet}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, tag)
	}
}

// Encode renders cmd in the form Decode accepts.
func Encode(cmd Command) ([]byte, error) {
	var body any
	switch c := cmd.(type) {
	case *StartRelease:
		body = startReleaseMsg{StartTime: types.NewAmount(c.StartTime)}
	case *SetConfig:
		body = setConfigMsg{Admin: c.Owner, Treasury: c.Treasury, TokenAddr: c.TargetToken, StartTime: types.NewAmount(c.StartTime)}
	case *SetPrice:
		m := setPriceMsg{}
		if c.Prices != nil {
			m.Prices = c.Prices.Prices
		}
		body = m
	case *SetVestingParameters:
		body = setVestingParametersMsg{Params: vestingParamsMsg{
			Soon:   types.NewAmount(c.Curve.ImmediateFraction),
			After:  types.NewAmount(c.Curve.CliffOffset),
			Period: types.NewAmount(c.Curve.VestingDuration),
		}}
	case *AddUser:
		body = addUserMsg{Funds: c.Funds}
	case *AddUserByOwner:
		body = addUserByOwnerMsg{Wallet: c.Wallet, Amount: c.Amount}
	case *ClaimPendingTokens:
		body = struct{}{}
	case *Withdraw:
		body = withdrawMsg{Wallet: c.Destination}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return json.Marshal(map[string]any{cmd.Name(): body})
}

func unmarshal(tag string, body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("command: decode %s: %w", tag, err)
	}
	return nil
}

func toUint64(field string, a types.Amount) (uint64, error) {
	u, ok := a.Uint64()
	if !ok {
		return 0, fmt.Errorf("command: %s exceeds 64 bits", field)
	}
	return u, nil
}
