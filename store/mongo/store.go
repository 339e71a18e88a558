// Package mongo stores vesting state in MongoDB. Update runs inside a
// multi-document session transaction, which requires a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/price"
	vestingstore "github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// Collection name constants.
const (
	colState   = "vesting_state"
	colEntries = "vesting_entries"
)

// Document keys in colState.
const (
	keyConfig = "config"
	keyPrices = "price_table"
	keyCurve  = "vesting_curve"
	keyTotal  = "total"
)

// compile-time interface check
var _ vestingstore.Store = (*Store)(nil)

// Store implements store.Store using the official MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	closed atomic.Bool

	// mu serializes Update within this process; across processes the
	// transaction's write conflicts are retried by the driver.
	mu sync.Mutex
}

// Connect dials uri and uses database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("vesting/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("vesting/mongo: ping: %w", err)
	}
	return New(client, dbName), nil
}

// New wraps an existing client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates the entry indexes. Both collections are created on first use.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(colEntries).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("vesting/mongo: migrate %s indexes: %w", colEntries, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r vestingstore.Reader) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	return fn(ctx, &tx{db: s.db})
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, t vestingstore.Tx) error) error {
	if s.closed.Load() {
		return vesting.ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("vesting/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	var fnErr error
	_, err = session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		fnErr = fn(sc, &tx{db: s.db})
		return nil, fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Transaction ====================

type tx struct {
	db *mongo.Database
}

func (t *tx) state() *mongo.Collection   { return t.db.Collection(colState) }
func (t *tx) entries() *mongo.Collection { return t.db.Collection(colEntries) }

func (t *tx) findState(ctx context.Context, key string, out any) error {
	err := t.state().FindOne(ctx, bson.M{"_id": key}).Decode(out)
	if err != nil {
		if isNoDocuments(err) {
			return fmt.Errorf("%w: %s", vesting.ErrNotFound, key)
		}
		return fmt.Errorf("vesting/mongo: get %s: %w", key, err)
	}
	return nil
}

func (t *tx) replaceState(ctx context.Context, key string, doc any) error {
	_, err := t.state().ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("vesting/mongo: put %s: %w", key, err)
	}
	return nil
}

// ==================== Globals ====================

func (t *tx) GetConfig(ctx context.Context) (*config.Config, error) {
	var m configModel
	if err := t.findState(ctx, keyConfig, &m); err != nil {
		return nil, err
	}
	return fromConfigModel(&m), nil
}

func (t *tx) PutConfig(ctx context.Context, cfg *config.Config) error {
	return t.replaceState(ctx, keyConfig, toConfigModel(cfg))
}

func (t *tx) GetPrices(ctx context.Context) (*price.Table, error) {
	var m pricesModel
	if err := t.findState(ctx, keyPrices, &m); err != nil {
		return nil, err
	}
	table, err := fromPricesModel(&m)
	if err != nil {
		return nil, fmt.Errorf("vesting/mongo: %w", err)
	}
	return table, nil
}

func (t *tx) PutPrices(ctx context.Context, table *price.Table) error {
	return t.replaceState(ctx, keyPrices, toPricesModel(table))
}

func (t *tx) GetCurve(ctx context.Context) (*curve.Curve, error) {
	var m curveModel
	if err := t.findState(ctx, keyCurve, &m); err != nil {
		return nil, err
	}
	return fromCurveModel(&m), nil
}

func (t *tx) PutCurve(ctx context.Context, crv *curve.Curve) error {
	return t.replaceState(ctx, keyCurve, toCurveModel(crv))
}

func (t *tx) GetTotal(ctx context.Context) (types.Amount, error) {
	var m totalModel
	err := t.findState(ctx, keyTotal, &m)
	if errors.Is(err, vesting.ErrNotFound) {
		return types.Amount{}, nil
	}
	if err != nil {
		return types.Amount{}, err
	}
	total, err := types.ParseAmount(m.Value)
	if err != nil {
		return types.Amount{}, fmt.Errorf("vesting/mongo: total: %w", err)
	}
	return total, nil
}

func (t *tx) PutTotal(ctx context.Context, total types.Amount) error {
	return t.replaceState(ctx, keyTotal, &totalModel{ID: keyTotal, Value: total.String()})
}

// ==================== Entries ====================

func (t *tx) GetEntry(ctx context.Context, address string) (*account.Entry, error) {
	var m entryModel
	err := t.entries().FindOne(ctx, bson.M{"_id": address}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: entry %s", vesting.ErrNotFound, address)
		}
		return nil, fmt.Errorf("vesting/mongo: get entry: %w", err)
	}
	e, err := fromEntryModel(&m)
	if err != nil {
		return nil, fmt.Errorf("vesting/mongo: %w", err)
	}
	return e, nil
}

func (t *tx) PutEntry(ctx context.Context, e *account.Entry) error {
	m := toEntryModel(e)
	_, err := t.entries().ReplaceOne(ctx, bson.M{"_id": m.Address}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("vesting/mongo: put entry: %w", err)
	}
	return nil
}

func (t *tx) ListEntries(ctx context.Context, opts account.ListOpts) ([]*account.Entry, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := t.entries().Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("vesting/mongo: list entries: %w", err)
	}
	var models []entryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("vesting/mongo: decode entries: %w", err)
	}

	out := make([]*account.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("vesting/mongo: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
