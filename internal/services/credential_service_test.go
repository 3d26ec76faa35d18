package services

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/mocks"
)

func TestCredentialService_LockoutThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const trainerID = uint(42)
	cfg := DefaultLockoutConfig()

	for i := 1; i < cfg.Threshold; i++ {
		status, err := env.credentials.RecordFailedAttempt(ctx, trainerID)
		require.NoError(t, err)
		assert.False(t, status.Locked, "attempt %d", i)

		remaining, err := env.credentials.RemainingAttempts(ctx, trainerID)
		require.NoError(t, err)
		assert.Equal(t, cfg.Threshold-i, remaining)
	}

	status, err := env.credentials.RecordFailedAttempt(ctx, trainerID)
	require.NoError(t, err)
	require.True(t, status.Locked)
	require.NotNil(t, status.LockedUntil)
	assert.Equal(t, env.clock.Now().Add(cfg.LockDuration), *status.LockedUntil)

	locked, err := env.credentials.IsLocked(ctx, trainerID)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	env.clock.Advance(cfg.LockDuration + time.Second)
	locked, err = env.credentials.IsLocked(ctx, trainerID)
	require.NoError(t, err)
	assert.False(t, locked.Locked)

	require.NoError(t, env.credentials.ClearFailedAttempts(ctx, trainerID))
	remaining, err := env.credentials.RemainingAttempts(ctx, trainerID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Threshold, remaining)
}

func TestCredentialService_HashAndVerify(t *testing.T) {
	env := newTestEnv(t)

	hash, err := env.credentials.Hash("trainer123")
	require.NoError(t, err)
	assert.NotEqual(t, "trainer123", hash)
	assert.True(t, env.credentials.Verify("trainer123", hash))
	assert.False(t, env.credentials.Verify("trainer124", hash))
}

type flakyAttemptStore struct {
	domain.FailedAttemptStore
	calls int
}

func (s *flakyAttemptStore) LockedUntil(ctx context.Context, trainerID uint) (*time.Time, error) {
	s.calls++
	return nil, syscall.ECONNRESET
}

func TestCredentialService_StoreOutage(t *testing.T) {
	store := &flakyAttemptStore{}
	svc := NewCredentialService(mocks.NewMockPasswordService(), store, DefaultLockoutConfig(), nil).
		WithRetryPolicy(noSleepPolicy())

	_, err := svc.IsLocked(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.True(t, errors.Is(err, syscall.ECONNRESET))
	assert.Equal(t, 4, store.calls)
}
