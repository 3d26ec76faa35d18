package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
)

// Context keys set by the bearer middleware
const (
	TrainerIDKey = "trainer_id"
	SessionIDKey = "session_id"
)

// AuthMW wraps the token service and session repository for middleware
type AuthMW struct {
	tokenSvc    domain.TokenService
	sessionRepo domain.SessionRepository
	logger      *zap.Logger
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository, logger *zap.Logger) *AuthMW {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMW{
		tokenSvc:    tokenSvc,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// WithJWT requires a valid access token whose session is still open
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "authorization header required")
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
			return
		}

		claims, err := mw.tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, domain.ErrTokenExpired.Code, "token expired")
				return
			}
			abort(c, http.StatusUnauthorized, domain.ErrTokenInvalid.Code, "invalid token")
			return
		}

		// a logged-out session must not keep working until its access token expires
		session, err := mw.sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			abort(c, http.StatusUnauthorized, "session_invalid", "session invalid or expired")
			return
		case err != nil:
			mw.logger.Warn("session lookup failed", zap.String("session_id", claims.SessionID), zap.Error(err))
			abort(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Code, domain.ErrServiceUnavailable.Message)
			return
		case session.TrainerID != claims.TrainerID:
			abort(c, http.StatusUnauthorized, "session_invalid", "session trainer mismatch")
			return
		}

		c.Set(TrainerIDKey, claims.TrainerID)
		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}
