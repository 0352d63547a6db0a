// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_retriever/internal/feature/download/domain/entity"
	"stock_retriever/internal/feature/download/usecase"
)

// CachingRunRepository decorates a RunRepository with a Redis read-through cache for FindByID.
// Only finished runs are cached; a running run changes on its final save.
type CachingRunRepository struct {
	inner     usecase.RunRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.RunRepository = (*CachingRunRepository)(nil)

// NewCachingRunRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "runcache".
func NewCachingRunRepository(rdb *redis.Client, ttl time.Duration, inner usecase.RunRepository, namespace string) *CachingRunRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "runcache"
	}
	return &CachingRunRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Save writes through to the inner repository and drops the cached copy.
func (c *CachingRunRepository) Save(ctx context.Context, run *entity.Run) error {
	if err := c.inner.Save(ctx, run); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	_ = c.rdb.Del(ctx, c.cacheKey(run.ID)).Err() // Best effort
	return nil
}

// FindByID checks the cache first, then falls back to the inner repository.
func (c *CachingRunRepository) FindByID(ctx context.Context, id string) (*entity.Run, error) {
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var run entity.Run
		if err := json.Unmarshal(b, &run); err == nil {
			return &run, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the inner repository
	run, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) Store finished runs (best effort)
	if run.Status != entity.RunRunning {
		if b, err := json.Marshal(run); err == nil {
			_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
		}
	}
	return run, nil
}

// List is not cached; new runs appear on every trigger.
func (c *CachingRunRepository) List(ctx context.Context, limit int) ([]entity.Run, error) {
	return c.inner.List(ctx, limit)
}

func (c *CachingRunRepository) cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", c.namespace, id)
}
