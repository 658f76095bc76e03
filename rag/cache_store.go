package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAnswerCache memoizes query results in Redis. Entries carry no expiry;
// eviction is a deployment concern. Concurrent writers race harmlessly, last
// write wins.
type RedisAnswerCache struct {
	client *redis.Client
}

func NewRedisAnswerCache(client *redis.Client) *RedisAnswerCache {
	return &RedisAnswerCache{client: client}
}

func (c *RedisAnswerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (c *RedisAnswerCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

var _ AnswerCache = (*RedisAnswerCache)(nil)
