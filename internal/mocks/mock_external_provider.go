package mocks

import (
	"context"

	"github.com/you/trainerauth/domain"
)

// MockExternalIdentityProvider implements domain.ExternalIdentityProvider for testing
type MockExternalIdentityProvider struct {
	VerifyIDTokenFunc func(ctx context.Context, rawIDToken string) (*domain.ExternalIdentity, error)
	ExchangeCodeFunc  func(ctx context.Context, code, redirectURI string) (string, error)
}

// VerifyIDToken verifies an ID token
func (m *MockExternalIdentityProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*domain.ExternalIdentity, error) {
	if m.VerifyIDTokenFunc != nil {
		return m.VerifyIDTokenFunc(ctx, rawIDToken)
	}
	return nil, domain.ErrTokenInvalid
}

// ExchangeCode exchanges an authorization code for an ID token
func (m *MockExternalIdentityProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code, redirectURI)
	}
	return "", domain.ErrTokenInvalid
}

// Compile-time interface compliance verification
var _ domain.ExternalIdentityProvider = (*MockExternalIdentityProvider)(nil)
