// Package redis stores vesting state in Redis.
//
// Writers first take a lease key with SET NX PX, retrying a bounded number of
// times. Inside the lease, reads go through a WATCHed connection and writes are
// staged locally, then applied in one MULTI/EXEC that also bumps a version key.
// A commit that loses the WATCH fails with vesting.ErrTransactionFailed and is
// not re-run.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/price"
	vestingstore "github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// compile-time interface check
var _ vestingstore.Store = (*Store)(nil)

const (
	keyConfig  = "config"
	keyPrices  = "price_table"
	keyCurve   = "vesting_curve"
	keyTotal   = "total"
	keyUsers   = "users"
	keyVersion = "version"
	keyLease   = "lease"
	keySchema  = "schema"

	schemaVersion = 1
)

const (
	DefaultPrefix       = "vesting"
	DefaultLeaseTTL     = 10 * time.Second
	DefaultLeaseRetries = 50
	DefaultLeaseBackoff = 20 * time.Millisecond
)

var releaseLease = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Store implements store.Store over a go-redis client.
type Store struct {
	client *goredis.Client
	prefix string

	leaseTTL     time.Duration
	leaseRetries int
	leaseBackoff time.Duration

	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithLease tunes writer lease acquisition.
func WithLease(ttl time.Duration, retries int, backoff time.Duration) Option {
	return func(s *Store) {
		s.leaseTTL = ttl
		s.leaseRetries = retries
		s.leaseBackoff = backoff
	}
}

// New wraps client.
func New(client *goredis.Client, opts ...Option) *Store {
	s := &Store{
		client:       client,
		prefix:       DefaultPrefix,
		leaseTTL:     DefaultLeaseTTL,
		leaseRetries: DefaultLeaseRetries,
		leaseBackoff: DefaultLeaseBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying client.
func (s *Store) Client() *goredis.Client { return s.client }

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Store) entryKey(address string) string {
	return s.prefix + ":users/" + address
}

// Migrate records the schema version. It refuses a keyspace written by a
// newer schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.SetNX(ctx, s.key(keySchema), schemaVersion, 0).Err(); err != nil {
		return fmt.Errorf("vesting/redis: migrate: %w", err)
	}
	v, err := s.client.Get(ctx, s.key(keySchema)).Int()
	if err != nil {
		return fmt.Errorf("vesting/redis: migrate: %w", err)
	}
	if v > schemaVersion {
		return fmt.Errorf("vesting/redis: keyspace schema %d is newer than %d", v, schemaVersion)
	}
	return nil
}

// Ping checks server connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r vestingstore.Reader) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	return fn(ctx, s.newTx(s.client))
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, t vestingstore.Tx) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}

	release, err := s.acquireLease(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = s.client.Watch(ctx, func(rtx *goredis.Tx) error {
		t := s.newTx(rtx)
		if err := fn(ctx, t); err != nil {
			return err
		}
		if len(t.staged) == 0 {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for k, v := range t.staged {
				pipe.Set(ctx, k, v, 0)
			}
			for addr := range t.added {
				pipe.ZAdd(ctx, s.key(keyUsers), goredis.Z{Member: addr})
			}
			pipe.Incr(ctx, s.key(keyVersion))
			return nil
		})
		return err
	}, s.key(keyVersion))

	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("%w: concurrent write", vesting.ErrTransactionFailed)
	}
	return err
}

func (s *Store) acquireLease(ctx context.Context) (func(), error) {
	key := s.key(keyLease)
	token := id.NewCommandID().String()

	for attempt := 0; attempt < s.leaseRetries; attempt++ {
		ok, err := s.client.SetNX(ctx, key, token, s.leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("vesting/redis: lease: %w", err)
		}
		if ok {
			return func() {
				_ = releaseLease.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.leaseBackoff):
		}
	}
	return nil, fmt.Errorf("%w: writer lease held elsewhere", vesting.ErrTransactionFailed)
}

// ==================== Transaction ====================

type tx struct {
	s      *Store
	r      goredis.Cmdable
	staged map[string][]byte
	added  map[string]struct{}
}

func (s *Store) newTx(r goredis.Cmdable) *tx {
	return &tx{
		s:      s,
		r:      r,
		staged: make(map[string][]byte),
		added:  make(map[string]struct{}),
	}
}

func (t *tx) get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := t.staged[key]; ok {
		return data, nil
	}
	data, err := t.r.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", vesting.ErrNotFound, key)
		}
		return nil, fmt.Errorf("vesting/redis: get %s: %w", key, err)
	}
	return data, nil
}

func (t *tx) stage(key string, data []byte, err error) error {
	if err != nil {
		return fmt.Errorf("vesting/redis: encode %s: %w", key, err)
	}
	t.staged[key] = data
	return nil
}

// ==================== Globals ====================

func (t *tx) GetConfig(ctx context.Context) (*config.Config, error) {
	data, err := t.get(ctx, t.s.key(keyConfig))
	if err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("vesting/redis: decode config: %w", err)
	}
	return cfg, nil
}

func (t *tx) PutConfig(_ context.Context, cfg *config.Config) error {
	data, err := encodeConfig(cfg)
	return t.stage(t.s.key(keyConfig), data, err)
}

func (t *tx) GetPrices(ctx context.Context) (*price.Table, error) {
	data, err := t.get(ctx, t.s.key(keyPrices))
	if err != nil {
		return nil, err
	}
	table, err := decodePrices(data)
	if err != nil {
		return nil, fmt.Errorf("vesting/redis: decode prices: %w", err)
	}
	return table, nil
}

func (t *tx) PutPrices(_ context.Context, table *price.Table) error {
	data, err := encodePrices(table)
	return t.stage(t.s.key(keyPrices), data, err)
}

func (t *tx) GetCurve(ctx context.Context) (*curve.Curve, error) {
	data, err := t.get(ctx, t.s.key(keyCurve))
	if err != nil {
		return nil, err
	}
	crv, err := decodeCurve(data)
	if err != nil {
		return nil, fmt.Errorf("vesting/redis: decode curve: %w", err)
	}
	return crv, nil
}

func (t *tx) PutCurve(_ context.Context, crv *curve.Curve) error {
	data, err := encodeCurve(crv)
	return t.stage(t.s.key(keyCurve), data, err)
}

func (t *tx) GetTotal(ctx context.Context) (types.Amount, error) {
	data, err := t.get(ctx, t.s.key(keyTotal))
	if errors.Is(err, vesting.ErrNotFound) {
		return types.Amount{}, nil
	}
	if err != nil {
		return types.Amount{}, err
	}
	total, err := types.ParseAmount(string(data))
	if err != nil {
		return types.Amount{}, fmt.Errorf("vesting/redis: decode total: %w", err)
	}
	return total, nil
}

func (t *tx) PutTotal(_ context.Context, total types.Amount) error {
	return t.stage(t.s.key(keyTotal), []byte(total.String()), nil)
}

// ==================== Entries ====================

func (t *tx) GetEntry(ctx context.Context, address string) (*account.Entry, error) {
	data, err := t.get(ctx, t.s.entryKey(address))
	if err != nil {
		return nil, err
	}
	e, err := decodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("vesting/redis: decode entry: %w", err)
	}
	return e, nil
}

func (t *tx) PutEntry(_ context.Context, e *account.Entry) error {
	data, err := encodeEntry(e)
	if err := t.stage(t.s.entryKey(e.Address), data, err); err != nil {
		return err
	}
	t.added[e.Address] = struct{}{}
	return nil
}

func (t *tx) ListEntries(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	addrs, err := t.addresses(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make([]*account.Entry, 0, len(addrs))
	for _, addr := range addrs {
		e, err := t.GetEntry(ctx, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// addresses pages the sorted user index. All members share score zero, so
// the set orders them lexicographically.
func (t *tx) addresses(ctx context.Context, opts account.ListOpts) ([]string, error) {
	if len(t.added) == 0 {
		start := int64(opts.Offset)
		stop := int64(-1)
		if opts.Limit > 0 {
			stop = start + int64(opts.Limit) - 1
		}
		addrs, err := t.r.ZRange(ctx, t.s.key(keyUsers), start, stop).Result()
		if err != nil {
			return nil, fmt.Errorf("vesting/redis: list entries: %w", err)
		}
		return addrs, nil
	}

	all, err := t.r.ZRange(ctx, t.s.key(keyUsers), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("vesting/redis: list entries: %w", err)
	}
	seen := make(map[string]struct{}, len(all))
	for _, a := range all {
		seen[a] = struct{}{}
	}
	for a := range t.added {
		if _, ok := seen[a]; !ok {
			all = append(all, a)
		}
	}
	sort.Strings(all)

	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}
