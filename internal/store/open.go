package store

import (
	"context"
	"fmt"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/cache"
	"github.com/ricemill-erp/ricemill-erp/internal/platform/db"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	SQLitePath string
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	PGDSN      string
	MongoURI   string
	MongoDB    string
}

// Open builds the configured backend. The returned closer is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), noop, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case DriverRedis:
		client, err := cache.New(ctx, cache.Options{Addr: opts.RedisAddr, Password: opts.RedisPass, DB: opts.RedisDB})
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client), client.Close, nil
	case DriverPostgres:
		pool, err := db.New(ctx, opts.PGDSN)
		if err != nil {
			return nil, noop, err
		}
		s, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return s, func() error { pool.Close(); return nil }, nil
	case DriverMongo:
		s, err := NewMongoStore(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, noop, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil
	default:
		return nil, noop, fmt.Errorf("store: unsupported driver %q", opts.Driver)
	}
}
