package domain

import (
	"context"
	"time"
)

// TrainerRepository defines trainer identity data access.
// Finders return ErrRecordNotFound when nothing matches.
type TrainerRepository interface {
	Create(ctx context.Context, trainer *Trainer) error
	FindByID(ctx context.Context, id uint) (*Trainer, error)
	FindByEmail(ctx context.Context, email string) (*Trainer, error)
	FindByPhone(ctx context.Context, phone string) (*Trainer, error)
	FindByExternalSubject(ctx context.Context, subject string) (*Trainer, error)
	Update(ctx context.Context, trainer *Trainer) error
	// TransferPhone moves phone from one identity to another inside one transaction,
	// holding row locks on both. Fails with ErrPhoneUnavailable if the source gained
	// an onboarding milestone or no longer holds the phone.
	TransferPhone(ctx context.Context, fromID, toID uint, phone string) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id uint) error
	MarkPhoneVerified(ctx context.Context, id uint) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// RefreshTokenRepository defines refresh token persistence
type RefreshTokenRepository interface {
	Create(ctx context.Context, record *RefreshTokenRecord) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshTokenRecord, error)
	// FindByHashForUpdate row-locks the record; only meaningful inside WithinTransaction
	FindByHashForUpdate(ctx context.Context, tokenHash string) (*RefreshTokenRecord, error)
	HasNewerLive(ctx context.Context, trainerID, afterID uint, now time.Time) (bool, error)
	Revoke(ctx context.Context, id uint, at time.Time) error
	RevokeAllForTrainer(ctx context.Context, trainerID uint, at time.Time) (int64, error)
	WithinTransaction(ctx context.Context, fn func(repo RefreshTokenRepository) error) error
}

// OTPRepository defines one-time code persistence
type OTPRepository interface {
	// Replace stores record as the only active code for its (subject, channel)
	Replace(ctx context.Context, record *OTPRecord) error
	FindForUpdate(ctx context.Context, subjectID string, channel OTPChannel) (*OTPRecord, error)
	IncrementAttempts(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	WithinTransaction(ctx context.Context, fn func(repo OTPRepository) error) error
}

// SessionRepository defines session storage in the ephemeral store
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForTrainer(ctx context.Context, trainerID uint) error
}

// FailedAttemptStore keeps shared failed-login counters and lock markers
type FailedAttemptStore interface {
	Increment(ctx context.Context, trainerID uint, window time.Duration) (int, error)
	Count(ctx context.Context, trainerID uint) (int, error)
	Lock(ctx context.Context, trainerID uint, until time.Time) error
	LockedUntil(ctx context.Context, trainerID uint) (*time.Time, error)
	Clear(ctx context.Context, trainerID uint) error
}

// Throttle rate-limits repeated actions on a key
type Throttle interface {
	// Allow consumes the window for key; when not allowed it returns the time left
	Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// Locker provides a distributed mutual-exclusion primitive with a holder TTL
type Locker interface {
	// Acquire blocks up to wait for the lock; returns ErrLockUnavailable on timeout
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lock, error)
}

// Lock is a held distributed lock
type Lock interface {
	Release(ctx context.Context) error
}

// PasswordService defines password hashing
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token signing and validation
type TokenService interface {
	IssueTokens(trainer *Trainer, sessionID string) (TokenPair, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
}

// SMSGateway sends phone codes
type SMSGateway interface {
	SendSMS(ctx context.Context, to, message string) error
	PlaceVoiceCall(ctx context.Context, to, message string) error
}

// EmailSender sends email codes
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ExternalIdentityProvider verifies OAuth sign-ins
type ExternalIdentityProvider interface {
	VerifyIDToken(ctx context.Context, rawIDToken string) (*ExternalIdentity, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// CredentialService hashes passwords and enforces the lockout policy
type CredentialService interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	RecordFailedAttempt(ctx context.Context, trainerID uint) (LockStatus, error)
	ClearFailedAttempts(ctx context.Context, trainerID uint) error
	IsLocked(ctx context.Context, trainerID uint) (LockStatus, error)
	RemainingAttempts(ctx context.Context, trainerID uint) (int, error)
}

// OTPService issues and verifies one-time codes
type OTPService interface {
	Issue(ctx context.Context, subjectID string, channel OTPChannel, method DeliveryMethod) (*OTPDispatch, error)
	Verify(ctx context.Context, subjectID string, channel OTPChannel, code string) error
}

// ResolveRequest carries the channels a caller presented
type ResolveRequest struct {
	Email           string
	Phone           string
	ExternalSubject string
	Provider        AuthProvider
	EmailVerified   bool
	// PasswordHash, when set, becomes the password of the resolved identity
	PasswordHash string
}

// IdentityResolver pins down a single trainer identity
type IdentityResolver interface {
	ResolveOrCreate(ctx context.Context, req ResolveRequest) (*Trainer, ResolveDecision, error)
}

// TokenRotator issues, rotates and revokes token lineages
type TokenRotator interface {
	StartSession(ctx context.Context, trainer *Trainer, meta ClientMeta) (*AuthResult, error)
	PersistRefreshToken(ctx context.Context, trainerID uint, sessionID, refreshToken string, expiresAt time.Time, meta ClientMeta) error
	Refresh(ctx context.Context, refreshToken, sessionID string, meta ClientMeta) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, trainerID uint) error
}

// AuthService is the surface consumed by the HTTP layer
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	ResendEmailOTP(ctx context.Context, email string) (*OTPDispatch, error)
	VerifyEmailOTP(ctx context.Context, email, code string, meta ClientMeta) (*AuthResult, error)
	Login(ctx context.Context, email, password string, meta ClientMeta) (*AuthResult, error)
	RequestPhoneOTP(ctx context.Context, phone string) (*OTPDispatch, error)
	VerifyPhoneOTP(ctx context.Context, phone, code, email string, meta ClientMeta) (*AuthResult, error)
	RetryPhoneOTP(ctx context.Context, phone string, method DeliveryMethod) (*OTPDispatch, error)
	AuthenticateWithExternalProvider(ctx context.Context, in ExternalAuthInput, meta ClientMeta) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken, sessionID string, meta ClientMeta) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, trainerID uint) error
	ChangePassword(ctx context.Context, trainerID uint, current, next string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, next string) error
}
