package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/infrastructure/auth"
	"github.com/you/trainerauth/internal/infrastructure/repositories"
	"github.com/you/trainerauth/internal/mocks"
	"github.com/you/trainerauth/internal/retry"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is a settable time source shared by every service in a test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// noSleepPolicy retries like production without waiting between attempts
func noSleepPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(repositories.Models()...))
	return db
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// testEnv wires the real services over sqlite and miniredis
type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	clock    *testClock
	notifier *mocks.MockNotifier
	audit    *mocks.MockAuditLogger
	external *mocks.MockExternalIdentityProvider

	trainers domain.TrainerRepository
	tokens   domain.RefreshTokenRepository
	sessions domain.SessionRepository

	jwt         *auth.JWTServiceImpl
	credentials *CredentialServiceImpl
	otp         *OTPServiceImpl
	rotator     *TokenRotatorImpl
	resolver    *IdentityResolverImpl
	auth        *AuthServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	rdb, mr := setupTestRedis(t)
	clock := newTestClock()
	policy := noSleepPolicy()

	env := &testEnv{
		db:       db,
		mr:       mr,
		clock:    clock,
		notifier: mocks.NewMockNotifier(),
		audit:    mocks.NewMockAuditLogger(),
		external: &mocks.MockExternalIdentityProvider{},
		trainers: repositories.NewTrainerRepository(db),
		tokens:   repositories.NewRefreshTokenRepository(db),
		sessions: repositories.NewSessionRepository(rdb, time.Hour),
	}

	passwords, err := auth.NewPasswordService(auth.MinCostDefault, false)
	require.NoError(t, err)
	env.jwt = auth.NewJWTService("test-secret-key-with-enough-bytes", "trainerauth-test", 15*time.Minute, 7*24*time.Hour).
		WithClock(clock.Now)

	env.credentials = NewCredentialService(passwords, repositories.NewFailedAttemptStore(rdb), DefaultLockoutConfig(), nil).
		WithClock(clock.Now).
		WithRetryPolicy(policy)

	otpConfig := DefaultOTPConfig()
	otpConfig.HashSecret = "otp-test-secret"
	env.otp = NewOTPService(repositories.NewOTPRepository(db), repositories.NewThrottle(rdb), env.notifier, env.notifier, otpConfig, nil).
		WithClock(clock.Now).
		WithRetryPolicy(policy)

	env.rotator = NewTokenRotator(env.trainers, env.tokens, env.sessions, env.jwt, repositories.NewLocker(rdb), env.audit, DefaultRotationConfig(), nil).
		WithClock(clock.Now).
		WithRetryPolicy(policy)

	env.resolver = NewIdentityResolver(env.trainers, env.rotator, env.audit, nil).WithRetryPolicy(policy)

	env.auth = NewAuthService(AuthServiceDeps{
		Trainers:    env.trainers,
		Credentials: env.credentials,
		OTP:         env.otp,
		Resolver:    env.resolver,
		Rotator:     env.rotator,
		External:    env.external,
		Audit:       env.audit,
	}).WithClock(clock.Now).WithRetryPolicy(policy)

	return env
}

var codePattern = regexp.MustCompile(`\b[0-9]{6}\b`)

// lastCode returns the most recent code delivered to recipient
func (e *testEnv) lastCode(t *testing.T, recipient string) string {
	t.Helper()
	msg, ok := e.notifier.Last(recipient)
	require.True(t, ok, "no message sent to %s", recipient)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(t, code, "no code in %q", msg.Body)
	return code
}

// wrongCode returns a code that differs from code
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// registerVerified creates a trainer with a verified email and the given password
func (e *testEnv) registerVerified(t *testing.T, email, password string) *domain.AuthResult {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Register(ctx, domain.RegisterInput{Email: email, Password: password})
	require.NoError(t, err)
	result, err := e.auth.VerifyEmailOTP(ctx, email, e.lastCode(t, email), domain.ClientMeta{})
	require.NoError(t, err)
	return result
}

func strPtr(s string) *string { return &s }
