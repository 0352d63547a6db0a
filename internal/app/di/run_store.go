package di

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"stock_retriever/internal/app/config"
	downloadadapters "stock_retriever/internal/feature/download/adapters"
	"stock_retriever/internal/feature/download/usecase"
	"stock_retriever/internal/platform/cache"
	"stock_retriever/internal/platform/db"
	infraredis "stock_retriever/internal/platform/redis"
)

const runCacheTTL = 10 * time.Minute

// RunStore is the selected run history backend.
type RunStore struct {
	Repo    usecase.RunRepository
	Backend string // "postgres", "sqlite", "redis" or "none"
	ping    func(ctx context.Context) error
	closers []func() error
}

// Ping checks the backend connection. The no-op backend is always healthy.
func (s *RunStore) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connections.
func (s *RunStore) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewRunStore creates a RunRepository implementation.
// A configured database is used when set, with Redis as a read cache if it is also reachable.
// Otherwise Redis alone is used when reachable, and without either runs are not recorded.
func NewRunStore(ctx context.Context, cfg config.Config) (*RunStore, error) {
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		tmp, err := infraredis.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			slog.Warn("Redis unavailable, running without it", "error", err)
		} else {
			rdb = tmp
		}
	}

	store := &RunStore{}
	if rdb != nil {
		store.closers = append(store.closers, rdb.Close)
	}

	switch {
	case cfg.DBDriver != "":
		gdb, err := db.Open(cfg.DB(), downloadadapters.Models()...)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		store.closers = append(store.closers, sqlDB.Close)

		repo := downloadadapters.NewRunRepository(gdb)
		store.Repo = repo
		store.ping = repo.Ping
		store.Backend = cfg.DBDriver
		if rdb != nil {
			store.Repo = cache.NewCachingRunRepository(rdb, runCacheTTL, repo, "runcache")
		}

	case rdb != nil:
		repo := infraredis.NewRunRedis(rdb, "runs")
		store.Repo = repo
		store.ping = repo.Ping
		store.Backend = "redis"

	default:
		store.Repo = downloadadapters.NopRunRepository{}
		store.Backend = "none"
	}

	slog.Info("run store selected", "backend", store.Backend)
	return store, nil
}
