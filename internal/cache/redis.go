package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SharedClient is the narrow surface the cache needs from the shared tier.
// Production wiring uses Redis; tests substitute a fake.
type SharedClient interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	AddToSet(ctx context.Context, set string, members ...string) error
	SetMembers(ctx context.Context, set string) ([]string, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// redisClient adapts go-redis to SharedClient.
type redisClient struct {
	rdb *redis.Client
}

// NewRedisClient builds a SharedClient backed by Redis.
// An empty address returns nil, which disables the shared tier.
func NewRedisClient(addr, password string, db int) SharedClient {
	if addr == "" {
		return nil
	}
	return &redisClient{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Get fetches a value, reporting a miss for absent keys.
func (c *redisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set writes a value with an optional TTL.
func (c *redisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Del removes keys and returns the removal count.
func (c *redisClient) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return c.rdb.Del(ctx, keys...).Result()
}

// AddToSet appends members to a set.
func (c *redisClient) AddToSet(ctx context.Context, set string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, 0, len(members))
	for _, member := range members {
		args = append(args, member)
	}
	return c.rdb.SAdd(ctx, set, args...).Err()
}

// SetMembers returns all members of a set.
func (c *redisClient) SetMembers(ctx context.Context, set string) ([]string, error) {
	return c.rdb.SMembers(ctx, set).Result()
}

// Keys scans for keys matching a glob pattern.
func (c *redisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if errIter := iter.Err(); errIter != nil {
		return nil, errIter
	}
	return out, nil
}
