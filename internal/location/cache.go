package location

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keilo/waytrack/internal/models"
)

const (
	lastFixKey = "waytrack:last_fix"
	lastFixTTL = 24 * time.Hour
)

// RedisCache keeps the most recent fix in Redis so a fresh process can fall
// back to it before giving up on acquisition.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Store(ctx context.Context, p models.GeoPoint) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	return c.client.Set(ctx, lastFixKey, data, lastFixTTL).Err()
}

func (c *RedisCache) Load(ctx context.Context) (*models.GeoPoint, error) {
	data, err := c.client.Get(ctx, lastFixKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load fix: %w", err)
	}

	var p models.GeoPoint
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal fix: %w", err)
	}
	return &p, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
