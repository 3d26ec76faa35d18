package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every failed response
type errorBody struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

// writeError maps a service error onto its HTTP status. Internal errors are
// reported to Sentry and never echoed to the client.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	de, ok := domain.AsError(err)
	if !ok || de.Kind == domain.KindInternal {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, errorBody{Error: domain.ErrInternal.Code, Message: domain.ErrInternal.Message})
		return
	}

	body := errorBody{Error: de.Code, Message: de.Message, RemainingAttempts: de.RemainingAttempts}
	if de.RetryAfter > 0 {
		secs := int64(math.Ceil(de.RetryAfter.Seconds()))
		body.RetryAfterSeconds = secs
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
	}
	if de.Kind == domain.KindServiceUnavailable {
		logger.Warn("dependency unavailable", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(de.Kind.HTTPStatus(), body)
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request", Message: err.Error()})
}

type trainerPayload struct {
	ID              uint       `json:"id"`
	Email           *string    `json:"email"`
	Phone           *string    `json:"phone"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	AuthProvider    string     `json:"auth_provider"`
	ApprovalStatus  string     `json:"approval_status"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

func toTrainerPayload(t *domain.Trainer) *trainerPayload {
	if t == nil {
		return nil
	}
	return &trainerPayload{
		ID:              t.ID,
		Email:           t.Email,
		Phone:           t.Phone,
		IsEmailVerified: t.IsEmailVerified,
		IsPhoneVerified: t.IsPhoneVerified,
		AuthProvider:    string(t.AuthProvider),
		ApprovalStatus:  string(t.ApprovalStatus),
		LastLoginAt:     t.LastLoginAt,
	}
}

type authPayload struct {
	AccessToken      string          `json:"access_token"`
	RefreshToken     string          `json:"refresh_token"`
	TokenType        string          `json:"token_type"`
	ExpiresIn        int64           `json:"expires_in"`
	RefreshExpiresAt time.Time       `json:"refresh_expires_at"`
	SessionID        string          `json:"session_id"`
	Decision         string          `json:"decision,omitempty"`
	Trainer          *trainerPayload `json:"trainer"`
}

func toAuthPayload(r *domain.AuthResult, now time.Time) authPayload {
	expiresIn := int64(r.Tokens.AccessExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return authPayload{
		AccessToken:      r.Tokens.AccessToken,
		RefreshToken:     r.Tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        expiresIn,
		RefreshExpiresAt: r.Tokens.RefreshExpiresAt,
		SessionID:        r.SessionID,
		Decision:         string(r.Decision),
		Trainer:          toTrainerPayload(r.Trainer),
	}
}

type dispatchPayload struct {
	Channel   string    `json:"channel"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toDispatchPayload(d *domain.OTPDispatch) *dispatchPayload {
	if d == nil {
		return nil
	}
	return &dispatchPayload{Channel: string(d.Channel), Method: string(d.Method), ExpiresAt: d.ExpiresAt}
}
