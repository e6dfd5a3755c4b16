// Package app assembles the voting components from configuration. Both the
// HTTP server and votectl build on it so they share one durable record.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/config"
	"github.com/pixelrelay/vote-system/internal/middleware"
	"github.com/pixelrelay/vote-system/internal/repository"
	"github.com/pixelrelay/vote-system/internal/service"
)

// App is a fully wired voting stack.
type App struct {
	Config    *config.Config
	Store     repository.KVStore
	Votes     *repository.VoteRecordRepo
	Cache     *service.SnapshotCache
	Simulator *service.Simulator
	Refresh   *service.RefreshWorker
	Engine    *service.VotingEngine
}

// New opens the configured vote store and builds the engine and refresh
// worker on top of it. The refresh worker is not started.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	clientID, errMsg := middleware.ValidateClientID(cfg.ClientID)
	if errMsg != "" {
		return nil, errors.New(errMsg)
	}

	store, err := repository.Open(ctx, repository.OpenParams{
		Driver:      cfg.StoreDriver,
		DataDir:     cfg.DataDir,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s vote store: %w", cfg.StoreDriver, err)
	}

	// Share the store's Redis connection with the snapshot cache when possible.
	var cache *service.SnapshotCache
	if rs, ok := store.(*repository.RedisStore); ok {
		cache = service.NewSnapshotCacheFromClient(rs.Client(), logger)
	} else {
		cache = service.NewSnapshotCache(cfg.RedisURL, logger)
	}

	sim := service.NewSimulator(service.SimulatorConfig{
		MinLatency:     cfg.SimMinLatency,
		MaxLatency:     cfg.SimMaxLatency,
		FailureRate:    cfg.SimFailureRate,
		DriftMax:       service.DefaultDriftMax,
		VotingDuration: cfg.VotingDuration,
	}, logger)

	worker := service.NewRefreshWorker(sim, service.RefreshOptions{
		FetchTimeout: cfg.FetchTimeout,
		ErrorTTL:     cfg.ErrorTTL,
		Cache:        cache,
	}, logger)

	votes := repository.NewVoteRecordRepo(store, clientID, logger)
	engine := service.NewVotingEngine(votes, sim, worker, service.EngineOptions{
		ErrorTTL:   cfg.ErrorTTL,
		CloseGuard: cfg.CloseGuard,
		AllowReset: cfg.AllowVoteReset,
	}, logger)

	return &App{
		Config:    cfg,
		Store:     store,
		Votes:     votes,
		Cache:     cache,
		Simulator: sim,
		Refresh:   worker,
		Engine:    engine,
	}, nil
}

// Pool returns the PostgreSQL pool backing the store, or nil.
func (a *App) Pool() *pgxpool.Pool {
	if ps, ok := a.Store.(*repository.PostgresStore); ok {
		return ps.Pool()
	}
	return nil
}

// Redis returns the Redis client used for the snapshot cache, or nil.
func (a *App) Redis() *redis.Client {
	return a.Cache.Client()
}

// Close releases the store and the cache connection.
func (a *App) Close() error {
	var errs []error
	if _, shared := a.Store.(*repository.RedisStore); !shared {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close snapshot cache: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close vote store: %w", err))
	}
	return errors.Join(errs...)
}
