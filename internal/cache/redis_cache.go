package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tokobuku:reports"

// RedisReportCache namespaces every key under a generation counter. Bumping
// the counter orphans all earlier entries, which then age out through their TTL.
type RedisReportCache struct {
	client *redis.Client
	prefix string
}

func NewRedisReportCache(addr string, password string, db int) *RedisReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportCache{client: client, prefix: defaultKeyPrefix}
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *RedisReportCache) generation(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("report cache generation %q: %w", val, err)
	}
	return gen, nil
}

func (c *RedisReportCache) entryKey(generation int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, generation, key)
}

func (c *RedisReportCache) Get(ctx context.Context, key string, dest any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}

	val, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return gen, false, err
	}
	return gen, true, nil
}

// Set writes under the generation the caller read with. After an Invalidate
// that key is no longer read and the entry ages out through its TTL.
func (c *RedisReportCache) Set(ctx context.Context, generation int64, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.entryKey(generation, key), payload, ttl).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}
