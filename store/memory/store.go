// Package memory is an in-process store. Update stages writes in an overlay
// and applies them only when the transaction function succeeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	vestingstore "github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

var _ vestingstore.Store = (*Store)(nil)

type state struct {
	config *config.Config
	prices *price.Table
	curve  *curve.Curve
	total  *types.Amount
	users  map[string]*account.Entry
}

func newState() *state {
	return &state{users: make(map[string]*account.Entry)}
}

type Store struct {
	mu     sync.RWMutex
	base   *state
	closed bool
}

func New() *Store {
	return &Store{base: newState()}
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r vestingstore.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	return fn(ctx, &tx{base: s.base, staged: newState()})
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, t vestingstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}

	t := &tx{base: s.base, staged: newState()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	t.apply()
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return vesting.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// tx reads through its staged writes to the committed base. Every value
// handed out is a copy.
type tx struct {
	base   *state
	staged *state
}

func (t *tx) apply() {
	if t.staged.config != nil {
		t.base.config = t.staged.config
	}
	if t.staged.prices != nil {
		t.base.prices = t.staged.prices
	}
	if t.staged.curve != nil {
		t.base.curve = t.staged.curve
	}
	if t.staged.total != nil {
		t.base.total = t.staged.total
	}
	for addr, e := range t.staged.users {
		t.base.users[addr] = e
	}
}

func (t *tx) GetConfig(_ context.Context) (*config.Config, error) {
	c := t.staged.config
	if c == nil {
		c = t.base.config
	}
	if c == nil {
		return nil, vesting.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *tx) PutConfig(_ context.Context, c *config.Config) error {
	cp := *c
	t.staged.config = &cp
	return nil
}

func (t *tx) GetPrices(_ context.Context) (*price.Table, error) {
	p := t.staged.prices
	if p == nil {
		p = t.base.prices
	}
	if p == nil {
		return nil, vesting.ErrNotFound
	}
	return p.Clone(), nil
}

func (t *tx) PutPrices(_ context.Context, p *price.Table) error {
	t.staged.prices = p.Clone()
	return nil
}

func (t *tx) GetCurve(_ context.Context) (*curve.Curve, error) {
	c := t.staged.curve
	if c == nil {
		c = t.base.curve
	}
	if c == nil {
		return nil, vesting.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *tx) PutCurve(_ context.Context, c *curve.Curve) error {
	cp := *c
	t.staged.curve = &cp
	return nil
}

func (t *tx) GetEntry(_ context.Context, address string) (*account.Entry, error) {
	if e, ok := t.staged.users[address]; ok {
		return e.Clone(), nil
	}
	if e, ok := t.base.users[address]; ok {
		return e.Clone(), nil
	}
	return nil, vesting.ErrNotFound
}

func (t *tx) PutEntry(_ context.Context, e *account.Entry) error {
	t.staged.users[e.Address] = e.Clone()
	return nil
}

func (t *tx) ListEntries(_ context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	merged := make(map[string]*account.Entry, len(t.base.users)+len(t.staged.users))
	for addr, e := range t.base.users {
		merged[addr] = e
	}
	for addr, e := range t.staged.users {
		merged[addr] = e
	}

	addrs := make([]string, 0, len(merged))
	for addr := range merged {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	addrs = page(addrs, opts)
	out := make([]*account.Entry, len(addrs))
	for i, addr := range addrs {
		out[i] = merged[addr].Clone()
	}
	return out, nil
}

func (t *tx) GetTotal(_ context.Context) (types.Amount, error) {
	if t.staged.total != nil {
		return *t.staged.total, nil
	}
	if t.base.total != nil {
		return *t.base.total, nil
	}
	return types.Amount{}, nil
}

func (t *tx) PutTotal(_ context.Context, total types.Amount) error {
	t.staged.total = &total
	return nil
}

func page(addrs []string, opts account.ListOpts) []string {
	if opts.Offset > 0 {
		if opts.Offset >= len(addrs) {
			return nil
		}
		addrs = addrs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(addrs) {
		addrs = addrs[:opts.Limit]
	}
	return addrs
}
