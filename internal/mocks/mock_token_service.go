package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/you/trainerauth/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// Default tokens are "access:<trainer>:<session>" and "refresh:<trainer>:<session>".
type MockTokenService struct {
	IssueTokensFunc          func(trainer *domain.Trainer, sessionID string) (domain.TokenPair, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// IssueTokens issues a token pair
func (m *MockTokenService) IssueTokens(trainer *domain.Trainer, sessionID string) (domain.TokenPair, error) {
	if m.IssueTokensFunc != nil {
		return m.IssueTokensFunc(trainer, sessionID)
	}
	now := time.Now()
	return domain.TokenPair{
		AccessToken:      fmt.Sprintf("access:%d:%s", trainer.ID, sessionID),
		RefreshToken:     fmt.Sprintf("refresh:%d:%s", trainer.ID, sessionID),
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}, nil
}

// ValidateAccessToken validates an access token
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return parseMockToken(token, domain.TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return parseMockToken(token, domain.TokenTypeRefresh)
}

func parseMockToken(token string, want domain.TokenType) (*domain.TokenClaims, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || domain.TokenType(parts[0]) != want {
		return nil, domain.ErrTokenInvalid
	}
	var id uint
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.TokenClaims{
		TrainerID: id,
		Role:      domain.RoleTrainer,
		SessionID: parts[2],
		Type:      want,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
