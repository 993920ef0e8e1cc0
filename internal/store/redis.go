package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces user records in Redis
const RedisKeyPrefix = "moneymind:user:"

// RedisBackend stores each record as a string value
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps a connected client
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisStore is a DocumentStore over a RedisBackend
func NewRedisStore(client *redis.Client) *DocumentStore {
	return New(NewRedisBackend(client))
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Get(ctx context.Context, userID string) ([]byte, error) {
	data, err := b.client.Get(ctx, RedisKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record from redis: %w", err)
	}
	return data, nil
}

func (b *RedisBackend) Put(ctx context.Context, userID string, doc []byte) error {
	if err := b.client.Set(ctx, RedisKeyPrefix+userID, doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to set record in redis: %w", err)
	}
	return nil
}

// Health pings the server
func (b *RedisBackend) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
