package domain

import "time"

// AuthProvider records how a trainer identity first authenticated
type AuthProvider string

const (
	AuthProviderPassword    AuthProvider = "password"
	AuthProviderPhoneOTP    AuthProvider = "phone-otp"
	AuthProviderOAuthNative AuthProvider = "oauth-native"
	AuthProviderOAuthWeb    AuthProvider = "oauth-web"
)

// ApprovalStatus tracks the trainer onboarding application
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// HasOnboardingMilestone reports whether the trainer has submitted an application.
// A phone held by such an identity is committed and cannot be transferred.
func (s ApprovalStatus) HasOnboardingMilestone() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

// RoleTrainer is the role carried in every token issued by this service
const RoleTrainer = "trainer"

// Trainer is the identity anchor resolved across email, phone and external sign-in
type Trainer struct {
	ID                      uint
	Email                   *string
	Phone                   *string
	PasswordHash            *string
	ExternalIdentitySubject *string
	IsEmailVerified         bool
	IsPhoneVerified         bool
	AuthProvider            AuthProvider
	ApprovalStatus          ApprovalStatus
	LastLoginAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// EmailValue returns the email or an empty string
func (t *Trainer) EmailValue() string {
	if t == nil || t.Email == nil {
		return ""
	}
	return *t.Email
}

// PhoneValue returns the phone or an empty string
func (t *Trainer) PhoneValue() string {
	if t == nil || t.Phone == nil {
		return ""
	}
	return *t.Phone
}

// HasPassword reports whether password login is possible for the trainer
func (t *Trainer) HasPassword() bool {
	return t != nil && t.PasswordHash != nil && *t.PasswordHash != ""
}

// OTPChannel is the delivery channel of a one-time code
type OTPChannel string

const (
	OTPChannelEmail OTPChannel = "email"
	OTPChannelPhone OTPChannel = "phone"
)

// DeliveryMethod selects how a phone code is delivered
type DeliveryMethod string

const (
	DeliveryText  DeliveryMethod = "text"
	DeliveryVoice DeliveryMethod = "voice"
)

// OTPRecord is the single active code for a (subject, channel) pair.
// The plaintext code is never stored.
type OTPRecord struct {
	ID           uint
	SubjectID    string
	Channel      OTPChannel
	CodeHash     string
	ExpiresAt    time.Time
	AttemptCount int
	CreatedAt    time.Time
}

// ClientMeta describes the client a refresh token was issued to
type ClientMeta struct {
	UserAgent string
	IP        string
}

// RefreshTokenRecord is the durable half of a refresh token.
// A record is live iff RevokedAt is nil and ExpiresAt is in the future.
type RefreshTokenRecord struct {
	ID        uint
	TokenHash string
	TrainerID uint
	SessionID string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	Meta      ClientMeta
}

// IsLive reports whether the record can still be rotated
func (r *RefreshTokenRecord) IsLive(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// Session is the cache-resident session record
type Session struct {
	ID             string        `json:"id"`
	TrainerID      uint          `json:"trainer_id"`
	Role           string        `json:"role"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	TTL            time.Duration `json:"ttl"`
}

// LockStatus is the lockout state of a trainer
type LockStatus struct {
	Locked      bool
	LockedUntil *time.Time
}

// TokenPair is a signed access/refresh pair
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims represents validated token claims
type TokenClaims struct {
	TrainerID uint
	Role      string
	Email     string
	Phone     string
	SessionID string
	TokenID   string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthResult is returned by every operation that authenticates a trainer
type AuthResult struct {
	Trainer   *Trainer
	Tokens    TokenPair
	SessionID string
	Decision  ResolveDecision
}

// RegisterInput carries registration data
type RegisterInput struct {
	Email    string
	Phone    string
	Password string
}

// RegisterResult is returned after a successful registration
type RegisterResult struct {
	Trainer  *Trainer
	Decision ResolveDecision
	OTP      *OTPDispatch
}

// OTPDispatch describes an issued code without revealing it
type OTPDispatch struct {
	Channel   OTPChannel
	Method    DeliveryMethod
	ExpiresAt time.Time
}

// ExternalClient distinguishes native app sign-in from web redirect sign-in
type ExternalClient string

const (
	ExternalClientNative ExternalClient = "native"
	ExternalClientWeb    ExternalClient = "web"
)

// ExternalAuthInput carries either an ID token (native) or an authorization code (web)
type ExternalAuthInput struct {
	Client      ExternalClient
	IDToken     string
	Code        string
	RedirectURI string
	Phone       string
}

// ExternalIdentity is a verified identity asserted by the OAuth provider
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// ResolveDecision is the outcome of cross-channel identity resolution
type ResolveDecision string

const (
	DecisionUseExisting    ResolveDecision = "use_existing"
	DecisionCreateNew      ResolveDecision = "create_new"
	DecisionTransferPhone  ResolveDecision = "transfer_phone"
	DecisionRejectConflict ResolveDecision = "reject_conflict"
)
