package price

import "context"

type Store interface {
	GetPrices(ctx context.Context) (*Table, error)
	PutPrices(ctx context.Context, t *Table) error
}
