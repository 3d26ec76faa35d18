package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/you/trainerauth/domain"
)

const lockPollInterval = 50 * time.Millisecond

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements domain.Locker with SET NX PX.
// Waiters poll the same atomic SET until their deadline; there is no
// separate "wait for release" step that a third caller could slip into.
type RedisLocker struct {
	client *redis.Client
	poll   time.Duration
}

// NewLocker creates a new Redis locker
func NewLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, poll: lockPollInterval}
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire implements domain.Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (domain.Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisLock{client: l.client, key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, domain.ErrLockUnavailable
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release implements domain.Lock. Returns ErrLockNotHeld when the TTL already
// handed the key to someone else.
func (l *redisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLockNotHeld
	}
	return nil
}
