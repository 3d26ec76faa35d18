package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the ephemeral store client
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a client for sessions, lockout counters and the refresh lock.
// Client-level retries stay off; store calls are retried by the retry policy.
func NewRedis(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   -1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})
}

// Ping verifies connectivity with a bounded timeout
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
