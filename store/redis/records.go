package redis

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Records are msgpack-encoded. Amounts travel as decimal strings.

type configRecord struct {
	Owner       string `msgpack:"owner"`
	Treasury    string `msgpack:"treasury"`
	TargetToken string `msgpack:"target_token"`
	StartTime   uint64 `msgpack:"start_time"`
}

type curveRecord struct {
	ImmediateFraction uint64 `msgpack:"immediate_fraction"`
	CliffOffset       uint64 `msgpack:"cliff_offset"`
	VestingDuration   uint64 `msgpack:"vesting_duration"`
}

type pricesRecord struct {
	Prices map[string]string `msgpack:"prices"`
}

type entryRecord struct {
	Address          string    `msgpack:"address"`
	TotalEntitlement string    `msgpack:"total_entitlement"`
	ReleasedAmount   string    `msgpack:"released_amount"`
	CreatedAt        time.Time `msgpack:"created_at"`
	UpdatedAt        time.Time `msgpack:"updated_at"`
}

func encodeConfig(c *config.Config) ([]byte, error) {
	return msgpack.Marshal(&configRecord{
		Owner:       c.Owner,
		Treasury:    c.Treasury,
		TargetToken: c.TargetToken,
		StartTime:   c.StartTime,
	})
}

func decodeConfig(data []byte) (*config.Config, error) {
	var r configRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &config.Config{
		Owner:       r.Owner,
		Treasury:    r.Treasury,
		TargetToken: r.TargetToken,
		StartTime:   r.StartTime,
	}, nil
}

func encodeCurve(c *curve.Curve) ([]byte, error) {
	return msgpack.Marshal(&curveRecord{
		ImmediateFraction: c.ImmediateFraction,
		CliffOffset:       c.CliffOffset,
		VestingDuration:   c.VestingDuration,
	})
}

func decodeCurve(data []byte) (*curve.Curve, error) {
	var r curveRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &curve.Curve{
		ImmediateFraction: r.ImmediateFraction,
		CliffOffset:       r.CliffOffset,
		VestingDuration:   r.VestingDuration,
	}, nil
}

func encodePrices(t *price.Table) ([]byte, error) {
	r := pricesRecord{Prices: make(map[string]string, len(t.Prices))}
	for denom, p := range t.Prices {
		r.Prices[denom] = p.String()
	}
	return msgpack.Marshal(&r)
}

func decodePrices(data []byte) (*price.Table, error) {
	var r pricesRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	t := &price.Table{Prices: make(map[string]types.Amount, len(r.Prices))}
	for denom, s := range r.Prices {
		p, err := types.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", denom, err)
		}
		t.Prices[denom] = p
	}
	return t, nil
}

func encodeEntry(e *account.Entry) ([]byte, error) {
	return msgpack.Marshal(&entryRecord{
		Address:          e.Address,
		TotalEntitlement: e.TotalEntitlement.String(),
		ReleasedAmount:   e.ReleasedAmount.String(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	})
}

func decodeEntry(data []byte) (*account.Entry, error) {
	var r entryRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	total, err := types.ParseAmount(r.TotalEntitlement)
	if err != nil {
		return nil, fmt.Errorf("entry %s total: %w", r.Address, err)
	}
	released, err := types.ParseAmount(r.ReleasedAmount)
	if err != nil {
		return nil, fmt.Errorf("entry %s released: %w", r.Address, err)
	}
	return &account.Entry{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		Address:          r.Address,
		TotalEntitlement: total,
		ReleasedAmount:   released,
	}, nil
}
