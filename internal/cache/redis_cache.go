package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"printdesk/backend/internal/domain"
)

type RedisRewardCache struct {
	client *redis.Client
}

func NewRedisRewardCache(addr string, password string, db int) *RedisRewardCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRewardCache{client: client}
}

func (c *RedisRewardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRewardCache) Close() error {
	return c.client.Close()
}

func (c *RedisRewardCache) Get(ctx context.Context, key string) (map[string]domain.RewardState, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var states map[string]domain.RewardState
	if err := json.Unmarshal([]byte(val), &states); err != nil {
		return nil, false, err
	}
	return states, true, nil
}

func (c *RedisRewardCache) Set(ctx context.Context, key string, value map[string]domain.RewardState, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisRewardCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
