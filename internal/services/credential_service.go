package services

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
	"go.uber.org/zap"
)

// LockoutConfig configures the failed-login policy
type LockoutConfig struct {
	Threshold    int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultLockoutConfig locks for 15 minutes after 5 failures within 15 minutes
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{Threshold: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

// CredentialServiceImpl implements domain.CredentialService
type CredentialServiceImpl struct {
	passwords domain.PasswordService
	attempts  domain.FailedAttemptStore
	config    LockoutConfig
	retry     retry.Policy
	clock     func() time.Time
	logger    *zap.Logger
}

// NewCredentialService creates a new credential service
func NewCredentialService(passwords domain.PasswordService, attempts domain.FailedAttemptStore, config LockoutConfig, logger *zap.Logger) *CredentialServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialServiceImpl{
		passwords: passwords,
		attempts:  attempts,
		config:    config,
		retry:     retry.DefaultPolicy(),
		clock:     time.Now,
		logger:    logger,
	}
}

// WithClock overrides the time source
func (s *CredentialServiceImpl) WithClock(clock func() time.Time) *CredentialServiceImpl {
	s.clock = clock
	return s
}

// WithRetryPolicy overrides the store retry policy
func (s *CredentialServiceImpl) WithRetryPolicy(p retry.Policy) *CredentialServiceImpl {
	s.retry = p
	return s
}

var _ domain.CredentialService = (*CredentialServiceImpl)(nil)

// Hash implements domain.CredentialService
func (s *CredentialServiceImpl) Hash(password string) (string, error) {
	return s.passwords.Hash(password)
}

// Verify implements domain.CredentialService
func (s *CredentialServiceImpl) Verify(password, hash string) bool {
	return s.passwords.Verify(hash, password)
}

// RecordFailedAttempt counts a wrong password and locks the trainer once the
// threshold is reached.
func (s *CredentialServiceImpl) RecordFailedAttempt(ctx context.Context, trainerID uint) (domain.LockStatus, error) {
	count, err := s.attempts.Increment(ctx, trainerID, s.config.Window)
	if err != nil {
		return domain.LockStatus{}, classify(s.retry, err)
	}
	if count < s.config.Threshold {
		return domain.LockStatus{}, nil
	}

	until := s.clock().Add(s.config.LockDuration)
	if err := s.attempts.Lock(ctx, trainerID, until); err != nil {
		return domain.LockStatus{}, classify(s.retry, err)
	}
	s.logger.Warn("trainer locked after failed logins",
		zap.Uint("trainer_id", trainerID),
		zap.Int("failures", count),
		zap.Time("locked_until", until))
	return domain.LockStatus{Locked: true, LockedUntil: &until}, nil
}

// ClearFailedAttempts implements domain.CredentialService
func (s *CredentialServiceImpl) ClearFailedAttempts(ctx context.Context, trainerID uint) error {
	return classify(s.retry, s.attempts.Clear(ctx, trainerID))
}

// IsLocked implements domain.CredentialService
func (s *CredentialServiceImpl) IsLocked(ctx context.Context, trainerID uint) (domain.LockStatus, error) {
	until, err := fetch(ctx, s.retry, func(ctx context.Context) (*time.Time, error) {
		return s.attempts.LockedUntil(ctx, trainerID)
	})
	if err != nil {
		return domain.LockStatus{}, err
	}
	if until == nil || !until.After(s.clock()) {
		return domain.LockStatus{}, nil
	}
	return domain.LockStatus{Locked: true, LockedUntil: until}, nil
}

// RemainingAttempts implements domain.CredentialService
func (s *CredentialServiceImpl) RemainingAttempts(ctx context.Context, trainerID uint) (int, error) {
	count, err := fetch(ctx, s.retry, func(ctx context.Context) (int, error) {
		return s.attempts.Count(ctx, trainerID)
	})
	if err != nil {
		return 0, err
	}
	if remaining := s.config.Threshold - count; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}
