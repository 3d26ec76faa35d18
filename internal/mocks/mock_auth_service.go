package mocks

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, in domain.RegisterInput) (*domain.RegisterResult, error)
	ResendEmailOTPFunc       func(ctx context.Context, email string) (*domain.OTPDispatch, error)
	VerifyEmailOTPFunc       func(ctx context.Context, email, code string, meta domain.ClientMeta) (*domain.AuthResult, error)
	LoginFunc                func(ctx context.Context, email, password string, meta domain.ClientMeta) (*domain.AuthResult, error)
	RequestPhoneOTPFunc      func(ctx context.Context, phone string) (*domain.OTPDispatch, error)
	VerifyPhoneOTPFunc       func(ctx context.Context, phone, code, email string, meta domain.ClientMeta) (*domain.AuthResult, error)
	RetryPhoneOTPFunc        func(ctx context.Context, phone string, method domain.DeliveryMethod) (*domain.OTPDispatch, error)
	ExternalFunc             func(ctx context.Context, in domain.ExternalAuthInput, meta domain.ClientMeta) (*domain.AuthResult, error)
	RefreshFunc              func(ctx context.Context, refreshToken, sessionID string, meta domain.ClientMeta) (*domain.AuthResult, error)
	LogoutFunc               func(ctx context.Context, refreshToken string) error
	LogoutAllFunc            func(ctx context.Context, trainerID uint) error
	ChangePasswordFunc       func(ctx context.Context, trainerID uint, current, next string) error
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ResetPasswordFunc        func(ctx context.Context, email, code, next string) error
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// MockAuthResult returns a signed-in result for trainer 1
func MockAuthResult() *domain.AuthResult {
	email := "coach@example.com"
	now := time.Now()
	return &domain.AuthResult{
		Trainer: &domain.Trainer{
			ID:              1,
			Email:           &email,
			IsEmailVerified: true,
			AuthProvider:    domain.AuthProviderPassword,
			ApprovalStatus:  domain.ApprovalNone,
		},
		Tokens: domain.TokenPair{
			AccessToken:      "mock_access_token",
			RefreshToken:     "mock_refresh_token",
			AccessExpiresAt:  now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		},
		SessionID: "mock_session_id",
		Decision:  domain.DecisionUseExisting,
	}
}

func mockDispatch(channel domain.OTPChannel, method domain.DeliveryMethod) *domain.OTPDispatch {
	return &domain.OTPDispatch{Channel: channel, Method: method, ExpiresAt: time.Now().Add(10 * time.Minute)}
}

// Register registers a trainer
func (m *MockAuthService) Register(ctx context.Context, in domain.RegisterInput) (*domain.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	result := MockAuthResult()
	return &domain.RegisterResult{
		Trainer:  result.Trainer,
		Decision: domain.DecisionCreateNew,
		OTP:      mockDispatch(domain.OTPChannelEmail, domain.DeliveryText),
	}, nil
}

// ResendEmailOTP re-sends the email code
func (m *MockAuthService) ResendEmailOTP(ctx context.Context, email string) (*domain.OTPDispatch, error) {
	if m.ResendEmailOTPFunc != nil {
		return m.ResendEmailOTPFunc(ctx, email)
	}
	return mockDispatch(domain.OTPChannelEmail, domain.DeliveryText), nil
}

// VerifyEmailOTP verifies the email code
func (m *MockAuthService) VerifyEmailOTP(ctx context.Context, email, code string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if m.VerifyEmailOTPFunc != nil {
		return m.VerifyEmailOTPFunc(ctx, email, code, meta)
	}
	return MockAuthResult(), nil
}

// Login authenticates a trainer
func (m *MockAuthService) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, meta)
	}
	return MockAuthResult(), nil
}

// RequestPhoneOTP sends a phone code
func (m *MockAuthService) RequestPhoneOTP(ctx context.Context, phone string) (*domain.OTPDispatch, error) {
	if m.RequestPhoneOTPFunc != nil {
		return m.RequestPhoneOTPFunc(ctx, phone)
	}
	return mockDispatch(domain.OTPChannelPhone, domain.DeliveryText), nil
}

// VerifyPhoneOTP verifies a phone code
func (m *MockAuthService) VerifyPhoneOTP(ctx context.Context, phone, code, email string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if m.VerifyPhoneOTPFunc != nil {
		return m.VerifyPhoneOTPFunc(ctx, phone, code, email, meta)
	}
	return MockAuthResult(), nil
}

// RetryPhoneOTP re-sends a phone code
func (m *MockAuthService) RetryPhoneOTP(ctx context.Context, phone string, method domain.DeliveryMethod) (*domain.OTPDispatch, error) {
	if m.RetryPhoneOTPFunc != nil {
		return m.RetryPhoneOTPFunc(ctx, phone, method)
	}
	return mockDispatch(domain.OTPChannelPhone, method), nil
}

// AuthenticateWithExternalProvider signs in with OAuth
func (m *MockAuthService) AuthenticateWithExternalProvider(ctx context.Context, in domain.ExternalAuthInput, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if m.ExternalFunc != nil {
		return m.ExternalFunc(ctx, in, meta)
	}
	return MockAuthResult(), nil
}

// Refresh rotates a refresh token
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken, sessionID string, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken, sessionID, meta)
	}
	return MockAuthResult(), nil
}

// Logout revokes one token
func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

// LogoutAll revokes every token of a trainer
func (m *MockAuthService) LogoutAll(ctx context.Context, trainerID uint) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, trainerID)
	}
	return nil
}

// ChangePassword changes a password
func (m *MockAuthService) ChangePassword(ctx context.Context, trainerID uint, current, next string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, trainerID, current, next)
	}
	return nil
}

// RequestPasswordReset sends a reset code
func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

// ResetPassword resets a password
func (m *MockAuthService) ResetPassword(ctx context.Context, email, code, next string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, next)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
