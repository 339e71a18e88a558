package curve

import "context"

type Store interface {
	GetCurve(ctx context.Context) (*Curve, error)
	PutCurve(ctx context.Context, c *Curve) error
}
