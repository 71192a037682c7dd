// Package rediscache backs the judge cache with Redis so judgments survive
// process restarts and are shared between workers.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hunter/src/core/evaluation"
)

const keyPrefix = "judgment:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at url (redis://...) and verifies the connection.
// ttl <= 0 keeps judgments until Redis evicts them.
func New(url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (evaluation.Judgment, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return evaluation.Judgment{}, false, nil
	}
	if err != nil {
		return evaluation.Judgment{}, false, fmt.Errorf("failed to get cached judgment: %w", err)
	}

	var judgment evaluation.Judgment
	if err := json.Unmarshal(data, &judgment); err != nil {
		return evaluation.Judgment{}, false, fmt.Errorf("failed to decode cached judgment: %w", err)
	}
	return judgment, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, judgment evaluation.Judgment) error {
	data, err := json.Marshal(judgment)
	if err != nil {
		return fmt.Errorf("failed to marshal judgment: %w", err)
	}

	var ttl time.Duration
	if c.ttl > 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store judgment: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
