package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps blobs as plain Redis strings with no expiry.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ BlobStore = (*RedisStore)(nil)

// NewRedisStore creates a store talking to the Redis server at addr.
func NewRedisStore(addr string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis key not found", "key", key)
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}

	r.logger.Debug("Redis GET successful", "key", key, "value_length", len(value))
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}

	r.logger.Debug("Redis SET successful", "key", key)
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.logger.Error("Redis DEL failed", "key", key, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}

	r.logger.Debug("Redis DEL successful", "key", key, "deleted_count", deleted)
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}
