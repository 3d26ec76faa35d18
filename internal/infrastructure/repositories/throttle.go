package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/trainerauth/domain"
)

// RedisThrottle implements domain.Throttle with one SET NX key per window
type RedisThrottle struct {
	client *redis.Client
	prefix string
}

// NewThrottle creates a new Redis-backed throttle
func NewThrottle(client *redis.Client) domain.Throttle {
	return &RedisThrottle{client: client, prefix: "throttle:"}
}

// Allow implements domain.Throttle
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	ok, err := t.client.SetNX(ctx, t.prefix+key, 1, window).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}

	left, err := t.client.PTTL(ctx, t.prefix+key).Result()
	if err != nil {
		return false, 0, err
	}
	if left < 0 {
		// key vanished or has no expiry; treat the full window as remaining
		left = window
	}
	return false, left, nil
}

// Reset implements domain.Throttle
func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.prefix+key).Err()
}
