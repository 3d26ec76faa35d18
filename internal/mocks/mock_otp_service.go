package mocks

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc  func(ctx context.Context, subjectID string, channel domain.OTPChannel, method domain.DeliveryMethod) (*domain.OTPDispatch, error)
	VerifyFunc func(ctx context.Context, subjectID string, channel domain.OTPChannel, code string) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue issues a code
func (m *MockOTPService) Issue(ctx context.Context, subjectID string, channel domain.OTPChannel, method domain.DeliveryMethod) (*domain.OTPDispatch, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, subjectID, channel, method)
	}
	return &domain.OTPDispatch{Channel: channel, Method: method, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

// Verify verifies a code
func (m *MockOTPService) Verify(ctx context.Context, subjectID string, channel domain.OTPChannel, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, subjectID, channel, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code == "123456" {
		return nil
	}
	return domain.ErrOTPMismatch
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
