package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores values as JSON in redis. Calls go through a circuit
// breaker so a dead redis degrades to cache misses instead of request
// failures.
type RedisCache struct {
	client  *redis.Client
	metrics *Metrics
	breaker *CircuitBreaker
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		metrics: NewMetrics(),
		breaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

func (c *RedisCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	err = c.breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.client.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordSet()
	return nil
}

func (c *RedisCache) Get(key string, dest interface{}) error {
	var data []byte
	var miss bool
	err := c.breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// A miss is a valid answer, not a breaker failure.
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		c.metrics.RecordError()
		return ErrCacheMiss
	}
	if miss {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	c.metrics.RecordHit()
	return nil
}

func (c *RedisCache) Delete(key string) error {
	err := c.breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.client.Del(ctx, key).Err()
	})
	if err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordDelete()
	return nil
}

func (c *RedisCache) DeletePattern(pattern string) error {
	return c.breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		return iter.Err()
	})
}

func (c *RedisCache) Exists(key string) (bool, error) {
	var n int64
	err := c.breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		count, err := c.client.Exists(ctx, key).Result()
		n = count
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Stats() map[string]interface{} {
	stats := c.metrics.Snapshot()
	stats["type"] = "redis"
	stats["breaker_state"] = c.breaker.State()
	return stats
}

func (c *RedisCache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
