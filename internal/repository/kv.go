package repository

import (
	"context"
	"errors"
)

// ErrStorage marks a failure of the persistence medium (unavailable, quota, I/O).
var ErrStorage = errors.New("storage error")

// KVStore is a key-value persistence medium addressed by string keys.
// Put and Delete are all-or-nothing: a failed call leaves the previous value intact.
type KVStore interface {
	// Get returns ok == false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Ping checks that the medium is reachable (for readiness probes).
	Ping(ctx context.Context) error
	Close() error
}

// Store driver names accepted by Open.
const (
	DriverBolt     = "bbolt"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)
