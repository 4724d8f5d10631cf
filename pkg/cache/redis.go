package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newm4n/pranoto.ai/pkg/types"
)

type StatusCache struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis-backed status cache
func NewRedisClient(host, port, password string) (*StatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		DB:           0,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StatusCache{client: client}, nil
}

// Close closes the Redis connection
func (c *StatusCache) Close() error {
	return c.client.Close()
}

// GetStatus gets a video's cached status.
// Returns an empty status if the id is not cached.
func (c *StatusCache) GetStatus(ctx context.Context, id string) (types.Status, error) {
	key := fmt.Sprintf("video:%s:status", id)

	status, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil // Not cached
	}
	if err != nil {
		return "", fmt.Errorf("failed to get video status from Redis: %w", err)
	}

	return types.Status(status), nil
}

// SetStatus caches a video's status with a TTL.
func (c *StatusCache) SetStatus(ctx context.Context, id string, status types.Status, ttl time.Duration) error {
	key := fmt.Sprintf("video:%s:status", id)

	err := c.client.Set(ctx, key, string(status), ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set video status in Redis: %w", err)
	}

	return nil
}
