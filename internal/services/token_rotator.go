package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
	"go.uber.org/zap"
)

// RotationConfig tunes refresh-token rotation
type RotationConfig struct {
	SessionTTL time.Duration
	// ReuseGrace is how long after a rotation the old token is reported as
	// "already used" rather than revoked
	ReuseGrace time.Duration
	LockWait   time.Duration
	LockTTL    time.Duration
}

// DefaultRotationConfig returns the production rotation settings
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		SessionTTL: 30 * 24 * time.Hour,
		ReuseGrace: 30 * time.Second,
		LockWait:   5 * time.Second,
		LockTTL:    10 * time.Second,
	}
}

// refreshRetryAfter is the hint given to a caller that lost the refresh lock race
const refreshRetryAfter = time.Second

// HashToken returns the storage key of a refresh token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func refreshLockKey(sessionID string) string {
	return "refresh_lock:" + sessionID
}

// TokenRotatorImpl implements domain.TokenRotator
type TokenRotatorImpl struct {
	trainers domain.TrainerRepository
	tokens   domain.RefreshTokenRepository
	sessions domain.SessionRepository
	signer   domain.TokenService
	locker   domain.Locker
	audit    domain.AuditLogger
	config   RotationConfig
	retry    retry.Policy
	clock    func() time.Time
	logger   *zap.Logger
}

// NewTokenRotator creates a new token rotator
func NewTokenRotator(
	trainers domain.TrainerRepository,
	tokens domain.RefreshTokenRepository,
	sessions domain.SessionRepository,
	signer domain.TokenService,
	locker domain.Locker,
	audit domain.AuditLogger,
	config RotationConfig,
	logger *zap.Logger,
) *TokenRotatorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenRotatorImpl{
		trainers: trainers,
		tokens:   tokens,
		sessions: sessions,
		signer:   signer,
		locker:   locker,
		audit:    audit,
		config:   config,
		retry:    retry.DefaultPolicy(),
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source
func (r *TokenRotatorImpl) WithClock(clock func() time.Time) *TokenRotatorImpl {
	r.clock = clock
	return r
}

// WithRetryPolicy overrides the store retry policy
func (r *TokenRotatorImpl) WithRetryPolicy(p retry.Policy) *TokenRotatorImpl {
	r.retry = p
	return r
}

var _ domain.TokenRotator = (*TokenRotatorImpl)(nil)

// StartSession opens a new session and the first token of its lineage
func (r *TokenRotatorImpl) StartSession(ctx context.Context, trainer *domain.Trainer, meta domain.ClientMeta) (*domain.AuthResult, error) {
	sessionID := uuid.NewString()
	pair, err := r.signer.IssueTokens(trainer, sessionID)
	if err != nil {
		return nil, domain.ErrInternal.Wrap(err)
	}
	if err := r.PersistRefreshToken(ctx, trainer.ID, sessionID, pair.RefreshToken, pair.RefreshExpiresAt, meta); err != nil {
		return nil, err
	}

	r.cacheSession(ctx, trainer.ID, sessionID, r.clock().UTC())
	return &domain.AuthResult{Trainer: trainer, Tokens: pair, SessionID: sessionID}, nil
}

// cacheSession writes the ephemeral session record. Sessions are disposable;
// the durable refresh token is what matters, so failures are only logged.
func (r *TokenRotatorImpl) cacheSession(ctx context.Context, trainerID uint, sessionID string, now time.Time) {
	session := &domain.Session{
		ID:             sessionID,
		TrainerID:      trainerID,
		Role:           domain.RoleTrainer,
		CreatedAt:      now,
		LastActivityAt: now,
		TTL:            r.config.SessionTTL,
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		r.logger.Warn("failed to cache session",
			zap.Uint("trainer_id", trainerID),
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// PersistRefreshToken stores a new live record for refreshToken
func (r *TokenRotatorImpl) PersistRefreshToken(ctx context.Context, trainerID uint, sessionID, refreshToken string, expiresAt time.Time, meta domain.ClientMeta) error {
	record := &domain.RefreshTokenRecord{
		TokenHash: HashToken(refreshToken),
		TrainerID: trainerID,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Meta:      meta,
	}
	err := retry.Run(ctx, r.retry, func(ctx context.Context) error {
		return r.tokens.Create(ctx, record)
	})
	if err != nil {
		return classify(r.retry, fmt.Errorf("failed to persist refresh token: %w", err))
	}
	return nil
}

// Refresh rotates refreshToken. Only one rotation per session runs at a time across
// instances; the replacement record is written before the presented one is revoked.
func (r *TokenRotatorImpl) Refresh(ctx context.Context, refreshToken, sessionID string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	claims, err := r.signer.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if sessionID != "" && sessionID != claims.SessionID {
		return nil, domain.ErrSessionMismatch
	}

	trainer, err := fetch(ctx, r.retry, func(ctx context.Context) (*domain.Trainer, error) {
		return r.trainers.FindByID(ctx, claims.TrainerID)
	})
	if isNotFound(err) {
		return nil, domain.ErrTokenNotRecognized
	}
	if err != nil {
		return nil, err
	}

	tokenHash := HashToken(refreshToken)
	if _, err := fetch(ctx, r.retry, func(ctx context.Context) (*domain.RefreshTokenRecord, error) {
		return r.tokens.FindByHash(ctx, tokenHash)
	}); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrTokenNotRecognized
		}
		return nil, err
	}

	lock, err := r.locker.Acquire(ctx, refreshLockKey(claims.SessionID), r.config.LockTTL, r.config.LockWait)
	if errors.Is(err, domain.ErrLockUnavailable) {
		return nil, domain.ErrRefreshInProgress.WithRetryAfter(refreshRetryAfter)
	}
	if err != nil {
		return nil, classify(r.retry, fmt.Errorf("acquire refresh lock: %w", err))
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to release refresh lock",
				zap.String("session_id", claims.SessionID), zap.Error(err))
		}
	}()

	now := r.clock()
	var pair domain.TokenPair
	var outcome error

	err = r.tokens.WithinTransaction(ctx, func(tx domain.RefreshTokenRepository) error {
		record, err := tx.FindByHashForUpdate(ctx, tokenHash)
		if isNotFound(err) {
			outcome = domain.ErrTokenNotRecognized
			return nil
		}
		if err != nil {
			return err
		}
		if record.TrainerID != claims.TrainerID || record.SessionID != claims.SessionID {
			outcome = domain.ErrTokenNotRecognized
			return nil
		}

		if record.RevokedAt != nil {
			outcome = domain.ErrTokenRevoked
			if now.Sub(*record.RevokedAt) <= r.config.ReuseGrace {
				newer, err := tx.HasNewerLive(ctx, record.TrainerID, record.ID, now)
				if err != nil {
					return err
				}
				if newer {
					outcome = domain.ErrRefreshTokenReused
				}
			}
			return nil
		}
		if !record.ExpiresAt.After(now) {
			outcome = domain.ErrTokenExpired
			return nil
		}

		pair, err = r.signer.IssueTokens(trainer, claims.SessionID)
		if err != nil {
			return domain.ErrInternal.Wrap(err)
		}
		replacement := &domain.RefreshTokenRecord{
			TokenHash: HashToken(pair.RefreshToken),
			TrainerID: trainer.ID,
			SessionID: claims.SessionID,
			ExpiresAt: pair.RefreshExpiresAt,
			Meta:      meta,
		}
		if err := tx.Create(ctx, replacement); err != nil {
			return err
		}
		return tx.Revoke(ctx, record.ID, now)
	})
	if err != nil {
		return nil, classify(r.retry, fmt.Errorf("rotate refresh token: %w", err))
	}
	if outcome != nil {
		if errors.Is(outcome, domain.ErrRefreshTokenReused) || errors.Is(outcome, domain.ErrTokenRevoked) {
			r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TokenReuseEvent, claims.TrainerID).
				WithSession(claims.SessionID).
				WithClient(meta).
				WithError(outcome))
		}
		return nil, outcome
	}

	switch err := r.sessions.Touch(ctx, claims.SessionID, now.UTC()); {
	case errors.Is(err, domain.ErrRecordNotFound):
		// the session store lost the record; the lineage is still live
		r.logger.Warn("session missing on refresh, recreating", zap.String("session_id", claims.SessionID))
		r.cacheSession(ctx, trainer.ID, claims.SessionID, now.UTC())
	case err != nil:
		r.logger.Warn("session touch failed", zap.String("session_id", claims.SessionID), zap.Error(err))
	}
	r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TokenRotatedEvent, trainer.ID).
		WithSession(claims.SessionID).
		WithClient(meta))

	return &domain.AuthResult{Trainer: trainer, Tokens: pair, SessionID: claims.SessionID}, nil
}

// Logout revokes the lineage head the caller presents. An expired token is
// still accepted so a client can always sign out.
func (r *TokenRotatorImpl) Logout(ctx context.Context, refreshToken string) error {
	if _, err := r.signer.ValidateRefreshToken(refreshToken); err != nil && !errors.Is(err, domain.ErrTokenExpired) {
		return err
	}

	record, err := fetch(ctx, r.retry, func(ctx context.Context) (*domain.RefreshTokenRecord, error) {
		return r.tokens.FindByHash(ctx, HashToken(refreshToken))
	})
	if isNotFound(err) {
		return domain.ErrTokenNotRecognized
	}
	if err != nil {
		return err
	}

	if record.RevokedAt == nil {
		if err := r.tokens.Revoke(ctx, record.ID, r.clock()); err != nil {
			return classify(r.retry, fmt.Errorf("revoke refresh token: %w", err))
		}
	}
	if err := r.sessions.Delete(ctx, record.SessionID); err != nil {
		r.logger.Warn("failed to drop session", zap.String("session_id", record.SessionID), zap.Error(err))
	}

	r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerLogoutEvent, record.TrainerID).
		WithSession(record.SessionID))
	return nil
}

// LogoutAll revokes every live token and session of a trainer
func (r *TokenRotatorImpl) LogoutAll(ctx context.Context, trainerID uint) error {
	revoked, err := r.tokens.RevokeAllForTrainer(ctx, trainerID, r.clock())
	if err != nil {
		return classify(r.retry, fmt.Errorf("revoke trainer tokens: %w", err))
	}
	if err := r.sessions.DeleteAllForTrainer(ctx, trainerID); err != nil {
		r.logger.Warn("failed to drop trainer sessions", zap.Uint("trainer_id", trainerID), zap.Error(err))
	}

	r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerLogoutAllEvent, trainerID).
		WithMetadata("revoked_tokens", fmt.Sprint(revoked)))
	return nil
}
