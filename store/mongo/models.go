package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// Amounts are stored as decimal strings; they exceed every BSON numeric type.

// ==================== Global models ====================

type configModel struct {
	ID          string `bson:"_id"`
	Owner       string `bson:"owner"`
	Treasury    string `bson:"treasury"`
	TargetToken string `bson:"target_token"`
	StartTime   int64  `bson:"start_time"`
}

func toConfigModel(c *config.Config) *configModel {
	return &configModel{
		ID:          keyConfig,
		Owner:       c.Owner,
		Treasury:    c.Treasury,
		TargetToken: c.TargetToken,
		StartTime:   int64(c.StartTime), //nolint:gosec // block times fit in int64
	}
}

func fromConfigModel(m *configModel) *config.Config {
	return &config.Config{
		Owner:       m.Owner,
		Treasury:    m.Treasury,
		TargetToken: m.TargetToken,
		StartTime:   uint64(m.StartTime), //nolint:gosec // written from a uint64
	}
}

type curveModel struct {
	ID                string `bson:"_id"`
	ImmediateFraction int64  `bson:"immediate_fraction"`
	CliffOffset       int64  `bson:"cliff_offset"`
	VestingDuration   int64  `bson:"vesting_duration"`
}

//nolint:gosec // curve parameters are seconds and percentages
func toCurveModel(c *curve.Curve) *curveModel {
	return &curveModel{
		ID:                keyCurve,
		ImmediateFraction: int64(c.ImmediateFraction),
		CliffOffset:       int64(c.CliffOffset),
		VestingDuration:   int64(c.VestingDuration),
	}
}

//nolint:gosec // written from uint64 values
func fromCurveModel(m *curveModel) *curve.Curve {
	return &curve.Curve{
		ImmediateFraction: uint64(m.ImmediateFraction),
		CliffOffset:       uint64(m.CliffOffset),
		VestingDuration:   uint64(m.VestingDuration),
	}
}

type pricesModel struct {
	ID     string            `bson:"_id"`
	Prices map[string]string `bson:"prices"`
}

func toPricesModel(t *price.Table) *pricesModel {
	m := &pricesModel{ID: keyPrices, Prices: make(map[string]string, len(t.Prices))}
	for denom, p := range t.Prices {
		m.Prices[denom] = p.String()
	}
	return m
}

func fromPricesModel(m *pricesModel) (*price.Table, error) {
	t := &price.Table{Prices: make(map[string]types.Amount, len(m.Prices))}
	for denom, s := range m.Prices {
		p, err := types.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", denom, err)
		}
		t.Prices[denom] = p
	}
	return t, nil
}

type totalModel struct {
	ID    string `bson:"_id"`
	Value string `bson:"value"`
}

// ==================== Entry models ====================

type entryModel struct {
	Address          string    `bson:"_id"`
	TotalEntitlement string    `bson:"total_entitlement"`
	ReleasedAmount   string    `bson:"released_amount"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toEntryModel(e *account.Entry) *entryModel {
	return &entryModel{
		Address:          e.Address,
		TotalEntitlement: e.TotalEntitlement.String(),
		ReleasedAmount:   e.ReleasedAmount.String(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*account.Entry, error) {
	total, err := types.ParseAmount(m.TotalEntitlement)
	if err != nil {
		return nil, fmt.Errorf("entry %s total: %w", m.Address, err)
	}
	released, err := types.ParseAmount(m.ReleasedAmount)
	if err != nil {
		return nil, fmt.Errorf("entry %s released: %w", m.Address, err)
	}
	return &account.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		Address:          m.Address,
		TotalEntitlement: total,
		ReleasedAmount:   released,
	}, nil
}
