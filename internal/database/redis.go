// Package database holds the Redis connection used for rate limiting and engagement events.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
)

// Redis wraps the Redis client
type Redis struct {
	*redis.Client
}

// NewRedis creates a new Redis connection
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Wrap adapts an existing client
func Wrap(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

// HealthCheck verifies the Redis connection is healthy
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx).Err()
}

// HitWindow counts one hit against a fixed window. The window starts on the
// first hit; it returns the hit count and the time left in the window.
func (r *Redis) HitWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		hits *redis.IntCmd
		left *redis.DurationCmd
	)
	if _, err := r.TxPipelined(ctx, func(p redis.Pipeliner) error {
		hits = p.Incr(ctx, key)
		left = p.TTL(ctx, key)
		return nil
	}); err != nil {
		return 0, 0, fmt.Errorf("count hit: %w", err)
	}

	if left.Val() < 0 {
		if err := r.Client.Expire(ctx, key, window).Err(); err != nil {
			return hits.Val(), window, fmt.Errorf("start window: %w", err)
		}
		return hits.Val(), window, nil
	}
	return hits.Val(), left.Val(), nil
}

// Publish publishes a message to a channel
func (r *Redis) Publish(ctx context.Context, channel string, message interface{}) error {
	return r.Client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels
func (r *Redis) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return r.Client.Subscribe(ctx, channels...)
}
