// Package backend opens a store.Store by driver name, for hosts that pick
// the back end from configuration.
package backend

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/store/mongo"
	"github.com/xraph/vesting/store/postgres"
	"github.com/xraph/vesting/store/redis"
	"github.com/xraph/vesting/store/sqlite"
)

// Driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// Options selects and parameterizes a back end.
type Options struct {
	// Driver is one of the Driver constants. Empty means memory.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the sqlite path, postgres DSN, mongo URI or redis URL.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the mongo database name (default "vesting").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// Prefix namespaces redis keys (default "vesting").
	Prefix string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`

	// MaxConns caps the postgres pool; zero keeps the pgx default.
	MaxConns int32 `json:"max_conns" mapstructure:"max_conns" yaml:"max_conns"`
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{DriverMemory, DriverSQLite, DriverPostgres, DriverMongo, DriverRedis}
}

// Open connects the selected back end. It does not migrate.
func Open(ctx context.Context, opts Options) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver != "" && driver != DriverMemory && opts.DSN == "" {
		return nil, fmt.Errorf("%w: store %s needs a dsn", vesting.ErrInvalidInput, driver)
	}

	switch driver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.Open(opts.DSN)
	case DriverPostgres:
		return postgres.Connect(ctx, opts.DSN, opts.MaxConns)
	case DriverMongo:
		db := opts.Database
		if db == "" {
			db = "vesting"
		}
		return mongo.Connect(ctx, opts.DSN, db)
	case DriverRedis:
		redisOpts, err := goredis.ParseURL(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("vesting/redis: parse url: %w", err)
		}
		var storeOpts []redis.Option
		if opts.Prefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(opts.Prefix))
		}
		return redis.New(goredis.NewClient(redisOpts), storeOpts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q (want one of %s)",
			vesting.ErrInvalidInput, opts.Driver, strings.Join(Drivers(), ", "))
	}
}
