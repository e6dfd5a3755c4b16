package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/db"
)

// OpenParams selects and configures the persistence medium.
type OpenParams struct {
	Driver      string
	DataDir     string
	RedisURL    string
	DatabaseURL string
	Logger      zerolog.Logger
}

// Open returns the KVStore named by p.Driver.
func Open(ctx context.Context, p OpenParams) (KVStore, error) {
	switch p.Driver {
	case DriverBolt, "":
		return OpenBoltStore(p.DataDir)
	case DriverRedis:
		return NewRedisStore(p.RedisURL)
	case DriverPostgres:
		pool, err := db.NewPool(ctx, p.DatabaseURL, p.Logger)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", p.Driver)
	}
}
