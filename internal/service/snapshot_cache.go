package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/model"
)

// SnapshotCacheTTL bounds how stale a warm-start snapshot may be.
const SnapshotCacheTTL = 15 * time.Minute

const snapshotKey = "talentvote:snapshot:latest"

// SnapshotCache keeps a Redis copy of the last good snapshot so a restarted
// process has stale-but-available data before its first live fetch.
type SnapshotCache struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewSnapshotCache connects to redisURL. If redisURL is empty or the connection
// fails, it returns a SnapshotCache with a nil client (operations become no-ops).
func NewSnapshotCache(redisURL string, logger zerolog.Logger) *SnapshotCache {
	log := logger.With().Str("component", "snapshot-cache").Logger()
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, snapshot cache disabled")
		return &SnapshotCache{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, snapshot cache disabled")
		return &SnapshotCache{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, snapshot cache disabled")
		rdb.Close()
		return &SnapshotCache{log: log}
	}

	log.Info().Msg("redis: connected, snapshot cache enabled")
	return &SnapshotCache{rdb: rdb, log: log}
}

// NewSnapshotCacheFromClient wraps an existing client; rdb may be nil.
func NewSnapshotCacheFromClient(rdb *redis.Client, logger zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, log: logger.With().Str("component", "snapshot-cache").Logger()}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *SnapshotCache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Save stores snap as the latest snapshot.
func (c *SnapshotCache) Save(ctx context.Context, snap *model.Snapshot) error {
	if c == nil || c.rdb == nil || snap == nil {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey, b, SnapshotCacheTTL).Err()
}

// Load returns the cached snapshot, or nil if absent, unreadable or disabled.
func (c *SnapshotCache) Load(ctx context.Context) (*model.Snapshot, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Warn().Err(err).Msg("cached snapshot unreadable, ignoring")
		return nil, nil
	}
	return &snap, nil
}

// Invalidate removes the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, snapshotKey).Err()
}

// Close shuts down the Redis connection.
func (c *SnapshotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
