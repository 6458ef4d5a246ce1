package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"restokasa/backend/internal/domain"
)

type RedisStatisticsCache struct {
	client *redis.Client
}

func NewRedisStatisticsCache(addr string, password string, db int) *RedisStatisticsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStatisticsCache{client: client}
}

func (c *RedisStatisticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStatisticsCache) Close() error {
	return c.client.Close()
}

func statsKey(shiftID string) string {
	return "shift-stats:" + shiftID
}

func (c *RedisStatisticsCache) Get(ctx context.Context, shiftID string) (*domain.ShiftStatistics, bool, error) {
	val, err := c.client.Get(ctx, statsKey(shiftID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.ShiftStatistics
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisStatisticsCache) Set(ctx context.Context, shiftID string, value *domain.ShiftStatistics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey(shiftID), payload, ttl).Err()
}

func (c *RedisStatisticsCache) Invalidate(ctx context.Context, shiftID string) error {
	return c.client.Del(ctx, statsKey(shiftID)).Err()
}
