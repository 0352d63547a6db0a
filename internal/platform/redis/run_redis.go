package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
	"stock_retriever/internal/feature/download/usecase"
)

// RunRedis implements usecase.RunRepository using Redis.
// Each run is a JSON string at "<prefix>:<id>"; "<prefix>:index" is a sorted set of IDs scored by start time.
type RunRedis struct {
	client *redis.Client
	prefix string
}

var _ usecase.RunRepository = (*RunRedis)(nil)

// NewRunRedis creates a new RunRedis instance. An empty prefix defaults to "runs".
func NewRunRedis(client *redis.Client, prefix string) *RunRedis {
	if prefix == "" {
		prefix = "runs"
	}
	return &RunRedis{client: client, prefix: prefix}
}

func (r *RunRedis) runKey(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

func (r *RunRedis) indexKey() string {
	return r.prefix + ":index"
}

// Save stores the run and records it in the index.
func (r *RunRedis) Save(ctx context.Context, run *entity.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := r.client.Set(ctx, r.runKey(run.ID), data, 0).Err(); err != nil {
		return err
	}
	return r.client.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(run.StartedAt.UnixMilli()),
		Member: run.ID,
	}).Err()
}

// FindByID retrieves a run by its ID.
func (r *RunRedis) FindByID(ctx context.Context, id string) (*entity.Run, error) {
	data, err := r.client.Get(ctx, r.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}

	var run entity.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns up to limit runs, newest first. Index entries whose run key is gone are skipped.
func (r *RunRedis) List(ctx context.Context, limit int) ([]entity.Run, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []entity.Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.runKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]entity.Run, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var run entity.Run
		if err := json.Unmarshal([]byte(s), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		run.Failures = nil
		out = append(out, run)
	}
	return out, nil
}

// Ping checks the Redis connection.
func (r *RunRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
