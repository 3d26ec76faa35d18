package repositories

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/trainerauth/domain"
)

const (
	failedLoginKeyPrefix = "login_fail:"
	loginLockKeyPrefix   = "login_lock:"
)

// FailedAttemptStoreImpl implements domain.FailedAttemptStore using Redis so every
// instance of the service sees the same counters.
type FailedAttemptStoreImpl struct {
	client *redis.Client
}

// NewFailedAttemptStore creates a new failed attempt store
func NewFailedAttemptStore(client *redis.Client) domain.FailedAttemptStore {
	return &FailedAttemptStoreImpl{client: client}
}

func failKey(trainerID uint) string {
	return failedLoginKeyPrefix + strconv.FormatUint(uint64(trainerID), 10)
}

func lockKey(trainerID uint) string {
	return loginLockKeyPrefix + strconv.FormatUint(uint64(trainerID), 10)
}

// incrementScript bumps the counter and starts its window in one step. A key
// found without a TTL gets one too.
var incrementScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Increment bumps the counter; the window starts at the first failure
func (s *FailedAttemptStoreImpl) Increment(ctx context.Context, trainerID uint, window time.Duration) (int, error) {
	count, err := incrementScript.Run(ctx, s.client, []string{failKey(trainerID)}, window.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Count implements domain.FailedAttemptStore
func (s *FailedAttemptStoreImpl) Count(ctx context.Context, trainerID uint) (int, error) {
	count, err := s.client.Get(ctx, failKey(trainerID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// Lock marks the trainer locked until the given time
func (s *FailedAttemptStoreImpl) Lock(ctx context.Context, trainerID uint, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, lockKey(trainerID), until.UnixMilli(), ttl).Err()
}

// LockedUntil returns nil when the trainer is not locked
func (s *FailedAttemptStoreImpl) LockedUntil(ctx context.Context, trainerID uint) (*time.Time, error) {
	ms, err := s.client.Get(ctx, lockKey(trainerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	until := time.UnixMilli(ms).UTC()
	return &until, nil
}

// Clear drops both the counter and any lock marker
func (s *FailedAttemptStoreImpl) Clear(ctx context.Context, trainerID uint) error {
	return s.client.Del(ctx, failKey(trainerID), lockKey(trainerID)).Err()
}
