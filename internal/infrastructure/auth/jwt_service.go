package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/you/trainerauth/domain"
)

// trainerClaims is the signed payload of both token types
type trainerClaims struct {
	TrainerID uint             `json:"trainer_id"`
	Role      string           `json:"role"`
	Email     string           `json:"email,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	SessionID string           `json:"session_id"`
	Type      domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey       []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	clock           func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, accessTTL, refreshTTL time.Duration) *JWTServiceImpl {
	return &JWTServiceImpl{
		secretKey:       []byte(secretKey),
		issuer:          issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		clock:           time.Now,
	}
}

// WithClock overrides the time source; used by tests
func (j *JWTServiceImpl) WithClock(clock func() time.Time) *JWTServiceImpl {
	j.clock = clock
	return j
}

var _ domain.TokenService = (*JWTServiceImpl)(nil)

// IssueTokens signs a fresh access/refresh pair bound to sessionID.
// Every token carries a unique jti, so two pairs issued in the same second still differ.
func (j *JWTServiceImpl) IssueTokens(trainer *domain.Trainer, sessionID string) (domain.TokenPair, error) {
	now := j.clock()
	access, accessExp, err := j.sign(trainer, sessionID, domain.TokenTypeAccess, now, j.accessTokenTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := j.sign(trainer, sessionID, domain.TokenTypeRefresh, now, j.refreshTokenTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (j *JWTServiceImpl) sign(trainer *domain.Trainer, sessionID string, typ domain.TokenType, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := trainerClaims{
		TrainerID: trainer.ID,
		Role:      domain.RoleTrainer,
		Email:     trainer.EmailValue(),
		Phone:     trainer.PhoneValue(),
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   fmt.Sprintf("%d", trainer.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeAccess)
}

// ValidateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeRefresh)
}

// validateToken validates a JWT token and returns claims
func (j *JWTServiceImpl) validateToken(tokenString string, want domain.TokenType) (*domain.TokenClaims, error) {
	claims := &trainerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid.Wrap(err)
	}
	if !token.Valid || claims.Type != want || claims.TrainerID == 0 || claims.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}

	result := &domain.TokenClaims{
		TrainerID: claims.TrainerID,
		Role:      claims.Role,
		Email:     claims.Email,
		Phone:     claims.Phone,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
		Type:      claims.Type,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}
