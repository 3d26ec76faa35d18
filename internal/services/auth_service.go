package services

import (
	"context"
	"errors"
	"time"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
	"go.uber.org/zap"
)

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	trainers    domain.TrainerRepository
	credentials domain.CredentialService
	otp         domain.OTPService
	resolver    domain.IdentityResolver
	rotator     domain.TokenRotator
	external    domain.ExternalIdentityProvider
	audit       domain.AuditLogger
	retry       retry.Policy
	clock       func() time.Time
	logger      *zap.Logger
}

// AuthServiceDeps groups the collaborators of AuthServiceImpl
type AuthServiceDeps struct {
	Trainers    domain.TrainerRepository
	Credentials domain.CredentialService
	OTP         domain.OTPService
	Resolver    domain.IdentityResolver
	Rotator     domain.TokenRotator
	// External may be nil when no OAuth provider is configured
	External domain.ExternalIdentityProvider
	Audit    domain.AuditLogger
	Logger   *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(deps AuthServiceDeps) *AuthServiceImpl {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthServiceImpl{
		trainers:    deps.Trainers,
		credentials: deps.Credentials,
		otp:         deps.OTP,
		resolver:    deps.Resolver,
		rotator:     deps.Rotator,
		external:    deps.External,
		audit:       deps.Audit,
		retry:       retry.DefaultPolicy(),
		clock:       time.Now,
		logger:      logger,
	}
}

// WithClock overrides the time source
func (s *AuthServiceImpl) WithClock(clock func() time.Time) *AuthServiceImpl {
	s.clock = clock
	return s
}

// WithRetryPolicy overrides the store retry policy
func (s *AuthServiceImpl) WithRetryPolicy(p retry.Policy) *AuthServiceImpl {
	s.retry = p
	return s
}

var _ domain.AuthService = (*AuthServiceImpl)(nil)

func (s *AuthServiceImpl) findByEmail(ctx context.Context, email string) (*domain.Trainer, error) {
	return fetch(ctx, s.retry, func(ctx context.Context) (*domain.Trainer, error) {
		return s.trainers.FindByEmail(ctx, email)
	})
}

func (s *AuthServiceImpl) findByID(ctx context.Context, id uint) (*domain.Trainer, error) {
	return fetch(ctx, s.retry, func(ctx context.Context) (*domain.Trainer, error) {
		return s.trainers.FindByID(ctx, id)
	})
}

// Register creates or refreshes an unverified password identity and emails a code
func (s *AuthServiceImpl) Register(ctx context.Context, in domain.RegisterInput) (*domain.RegisterResult, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	var phone string
	if in.Phone != "" {
		if phone, err = NormalizePhone(in.Phone); err != nil {
			return nil, err
		}
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.findByEmail(ctx, email)
	switch {
	case err == nil && existing.IsEmailVerified:
		return nil, domain.ErrEmailTaken
	case err != nil && !isNotFound(err):
		return nil, err
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, domain.ErrInternal.Wrap(err)
	}

	trainer, decision, err := s.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:        email,
		Phone:        phone,
		Provider:     domain.AuthProviderPassword,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.RegisterResult{Trainer: trainer, Decision: decision}
	dispatch, err := s.otp.Issue(ctx, email, domain.OTPChannelEmail, domain.DeliveryText)
	switch {
	case err == nil:
		result.OTP = dispatch
	case errors.Is(err, domain.ErrOTPResendThrottled):
		// a code sent moments ago is still valid
	default:
		return nil, err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerRegisteredEvent, trainer.ID).
		WithMetadata("decision", string(decision)))
	return result, nil
}

// ResendEmailOTP issues a new email code for an unverified trainer
func (s *AuthServiceImpl) ResendEmailOTP(ctx context.Context, email string) (*domain.OTPDispatch, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	trainer, err := s.findByEmail(ctx, email)
	if isNotFound(err) {
		return nil, domain.ErrTrainerNotFound
	}
	if err != nil {
		return nil, err
	}
	if trainer.IsEmailVerified {
		return nil, domain.ErrEmailVerified
	}
	return s.otp.Issue(ctx, email, domain.OTPChannelEmail, domain.DeliveryText)
}

// VerifyEmailOTP proves control of the email address and signs the trainer in
func (s *AuthServiceImpl) VerifyEmailOTP(ctx context.Context, email, code string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, domain.ErrMissingField
	}
	if err := s.otp.Verify(ctx, email, domain.OTPChannelEmail, code); err != nil {
		return nil, err
	}

	trainer, err := s.findByEmail(ctx, email)
	if isNotFound(err) {
		return nil, domain.ErrTrainerNotFound
	}
	if err != nil {
		return nil, err
	}
	if !trainer.IsEmailVerified {
		if err := s.trainers.MarkEmailVerified(ctx, trainer.ID); err != nil {
			return nil, classify(s.retry, err)
		}
		trainer.IsEmailVerified = true
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailVerifiedEvent, trainer.ID).WithClient(meta))
	}
	return s.signIn(ctx, trainer, meta, domain.DecisionUseExisting)
}

// Login authenticates with email and password under the lockout policy
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	trainer, err := s.findByEmail(ctx, email)
	if isNotFound(err) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	status, err := s.credentials.IsLocked(ctx, trainer.ID)
	if err != nil {
		return nil, err
	}
	if status.Locked {
		return nil, domain.ErrAccountLocked.WithRetryAfter(status.LockedUntil.Sub(s.clock()))
	}

	if !trainer.HasPassword() || !s.credentials.Verify(password, *trainer.PasswordHash) {
		return nil, s.failLogin(ctx, trainer, meta)
	}

	if !trainer.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	if err := s.credentials.ClearFailedAttempts(ctx, trainer.ID); err != nil {
		s.logger.Warn("failed to clear failed attempts", zap.Uint("trainer_id", trainer.ID), zap.Error(err))
	}
	return s.signIn(ctx, trainer, meta, domain.DecisionUseExisting)
}

func (s *AuthServiceImpl) failLogin(ctx context.Context, trainer *domain.Trainer, meta domain.ClientMeta) error {
	status, err := s.credentials.RecordFailedAttempt(ctx, trainer.ID)
	if err != nil {
		return err
	}
	if status.Locked {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerLockedEvent, trainer.ID).
			WithClient(meta).
			WithError(domain.ErrAccountLocked))
		return domain.ErrAccountLocked.WithRetryAfter(status.LockedUntil.Sub(s.clock()))
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerLoginFailureEvent, trainer.ID).
		WithClient(meta).
		WithError(domain.ErrInvalidCredentials))
	remaining, err := s.credentials.RemainingAttempts(ctx, trainer.ID)
	if err != nil {
		return err
	}
	return domain.ErrInvalidCredentials.WithRemaining(remaining)
}

// RequestPhoneOTP texts a sign-in code to phone
func (s *AuthServiceImpl) RequestPhoneOTP(ctx context.Context, phone string) (*domain.OTPDispatch, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	return s.otp.Issue(ctx, phone, domain.OTPChannelPhone, domain.DeliveryText)
}

// RetryPhoneOTP re-sends the phone code, optionally as a voice call
func (s *AuthServiceImpl) RetryPhoneOTP(ctx context.Context, phone string, method domain.DeliveryMethod) (*domain.OTPDispatch, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = domain.DeliveryText
	}
	return s.otp.Issue(ctx, phone, domain.OTPChannelPhone, method)
}

// VerifyPhoneOTP proves control of phone, resolves the identity it belongs to and
// signs it in. email, when given, links the phone to that identity.
func (s *AuthServiceImpl) VerifyPhoneOTP(ctx context.Context, phone, code, email string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if email != "" {
		if email, err = NormalizeEmail(email); err != nil {
			return nil, err
		}
	}
	if code == "" {
		return nil, domain.ErrMissingField
	}
	if err := s.otp.Verify(ctx, phone, domain.OTPChannelPhone, code); err != nil {
		return nil, err
	}
	if email != "" {
		if err := s.checkPhoneClaim(ctx, email, phone); err != nil {
			return nil, err
		}
	}

	trainer, decision, err := s.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:    email,
		Phone:    phone,
		Provider: domain.AuthProviderPhoneOTP,
	})
	if err != nil {
		return nil, err
	}

	if trainer.PhoneValue() == phone && !trainer.IsPhoneVerified {
		if err := s.trainers.MarkPhoneVerified(ctx, trainer.ID); err != nil {
			return nil, classify(s.retry, err)
		}
		trainer.IsPhoneVerified = true
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneVerifiedEvent, trainer.ID).WithClient(meta))
	}
	return s.signIn(ctx, trainer, meta, decision)
}

// checkPhoneClaim refuses to let a phone code sign in to an email identity
// that holds a credential of its own. The code proves the phone, not the mailbox.
func (s *AuthServiceImpl) checkPhoneClaim(ctx context.Context, email, phone string) error {
	owner, err := s.findByEmail(ctx, email)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// the phone already sits on this identity, so a phone-only sign-in reaches it too
	if owner.PhoneValue() == phone {
		return nil
	}
	if owner.HasPassword() || owner.ExternalIdentitySubject != nil || owner.IsEmailVerified || owner.IsPhoneVerified {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneConflictEvent, owner.ID).
			WithError(domain.ErrContactTaken))
		return domain.ErrContactTaken
	}
	return nil
}

// AuthenticateWithExternalProvider signs in with a Google ID token (native clients)
// or an authorization code (web clients)
func (s *AuthServiceImpl) AuthenticateWithExternalProvider(ctx context.Context, in domain.ExternalAuthInput, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if s.external == nil {
		return nil, domain.ErrExternalAuthFailed
	}

	var phone string
	if in.Phone != "" {
		var err error
		if phone, err = NormalizePhone(in.Phone); err != nil {
			return nil, err
		}
	}

	var rawIDToken string
	var provider domain.AuthProvider
	switch in.Client {
	case domain.ExternalClientNative:
		if in.IDToken == "" {
			return nil, domain.ErrInvalidProvider
		}
		rawIDToken = in.IDToken
		provider = domain.AuthProviderOAuthNative
	case domain.ExternalClientWeb:
		if in.Code == "" {
			return nil, domain.ErrInvalidProvider
		}
		token, err := s.external.ExchangeCode(ctx, in.Code, in.RedirectURI)
		if err != nil {
			return nil, domain.ErrExternalAuthFailed.Wrap(err)
		}
		rawIDToken = token
		provider = domain.AuthProviderOAuthWeb
	default:
		return nil, domain.ErrInvalidProvider
	}

	identity, err := s.external.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return nil, domain.ErrExternalAuthFailed.Wrap(err)
	}

	req := domain.ResolveRequest{
		Phone:           phone,
		ExternalSubject: identity.Subject,
		Provider:        provider,
	}
	// an unverified provider email proves nothing about the mailbox
	if identity.EmailVerified && identity.Email != "" {
		if email, err := NormalizeEmail(identity.Email); err == nil {
			req.Email = email
			req.EmailVerified = true
		}
	}

	trainer, decision, err := s.resolver.ResolveOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, trainer, meta, decision)
}

// Refresh rotates a refresh token
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken, sessionID string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingField
	}
	return s.rotator.Refresh(ctx, refreshToken, sessionID, meta)
}

// Logout revokes one refresh token
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrMissingField
	}
	return s.rotator.Logout(ctx, refreshToken)
}

// LogoutAll revokes every refresh token of a trainer
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, trainerID uint) error {
	return s.rotator.LogoutAll(ctx, trainerID)
}

// ChangePassword replaces the password after checking the current one
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, trainerID uint, current, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}
	trainer, err := s.findByID(ctx, trainerID)
	if isNotFound(err) {
		return domain.ErrTrainerNotFound
	}
	if err != nil {
		return err
	}
	status, err := s.credentials.IsLocked(ctx, trainer.ID)
	if err != nil {
		return err
	}
	if status.Locked {
		return domain.ErrAccountLocked.WithRetryAfter(status.LockedUntil.Sub(s.clock()))
	}
	if !trainer.HasPassword() || !s.credentials.Verify(current, *trainer.PasswordHash) {
		return s.failLogin(ctx, trainer, domain.ClientMeta{})
	}
	if err := s.credentials.ClearFailedAttempts(ctx, trainer.ID); err != nil {
		s.logger.Warn("failed to clear failed attempts", zap.Uint("trainer_id", trainer.ID), zap.Error(err))
	}

	hash, err := s.credentials.Hash(next)
	if err != nil {
		return domain.ErrInternal.Wrap(err)
	}
	if err := s.trainers.UpdatePassword(ctx, trainerID, hash); err != nil {
		return classify(s.retry, err)
	}
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordChangedEvent, trainerID))
	return nil
}

// RequestPasswordReset emails a reset code. Unknown addresses succeed silently.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	_, err = s.findByEmail(ctx, email)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.otp.Issue(ctx, email, domain.OTPChannelEmail, domain.DeliveryText)
	return err
}

// ResetPassword sets a new password after verifying an emailed code and ends
// every session of the trainer
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, code, next string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	if code == "" {
		return domain.ErrMissingField
	}
	if err := s.otp.Verify(ctx, email, domain.OTPChannelEmail, code); err != nil {
		return err
	}

	trainer, err := s.findByEmail(ctx, email)
	if isNotFound(err) {
		return domain.ErrTrainerNotFound
	}
	if err != nil {
		return err
	}

	hash, err := s.credentials.Hash(next)
	if err != nil {
		return domain.ErrInternal.Wrap(err)
	}
	if err := s.trainers.UpdatePassword(ctx, trainer.ID, hash); err != nil {
		return classify(s.retry, err)
	}
	// the code just proved control of the mailbox
	if !trainer.IsEmailVerified {
		if err := s.trainers.MarkEmailVerified(ctx, trainer.ID); err != nil {
			return classify(s.retry, err)
		}
	}
	if err := s.credentials.ClearFailedAttempts(ctx, trainer.ID); err != nil {
		s.logger.Warn("failed to clear failed attempts", zap.Uint("trainer_id", trainer.ID), zap.Error(err))
	}
	if err := s.rotator.LogoutAll(ctx, trainer.ID); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordResetDoneEvent, trainer.ID))
	return nil
}

// signIn records the login and opens a session
func (s *AuthServiceImpl) signIn(ctx context.Context, trainer *domain.Trainer, meta domain.ClientMeta, decision domain.ResolveDecision) (*domain.AuthResult, error) {
	now := s.clock().UTC()
	if err := s.trainers.TouchLastLogin(ctx, trainer.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Uint("trainer_id", trainer.ID), zap.Error(err))
	} else {
		trainer.LastLoginAt = &now
	}

	result, err := s.rotator.StartSession(ctx, trainer, meta)
	if err != nil {
		return nil, err
	}
	result.Decision = decision

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TrainerLoginEvent, trainer.ID).
		WithSession(result.SessionID).
		WithClient(meta).
		WithMetadata("provider", string(trainer.AuthProvider)))
	return result, nil
}
