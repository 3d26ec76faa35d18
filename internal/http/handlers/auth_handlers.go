package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/http/middleware"
	"go.uber.org/zap"
)

// AuthHandlers exposes domain.AuthService over HTTP
type AuthHandlers struct {
	authSvc domain.AuthService
	logger  *zap.Logger
	clock   func() time.Time
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{authSvc: authSvc, logger: logger, clock: time.Now}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

// EmailRequest carries a bare email address
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// EmailOTPVerifyRequest represents email code verification
type EmailOTPVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PhoneRequest carries a phone number and optional delivery method
type PhoneRequest struct {
	Phone  string `json:"phone" binding:"required"`
	Method string `json:"method" binding:"omitempty,oneof=text voice"`
}

// PhoneOTPVerifyRequest represents phone code verification
type PhoneOTPVerifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Email string `json:"email"`
}

// ExternalAuthRequest represents an OAuth sign-in
type ExternalAuthRequest struct {
	Client      string `json:"client" binding:"required,oneof=native web"`
	IDToken     string `json:"id_token"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	Phone       string `json:"phone"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	SessionID    string `json:"session_id"`
}

// ChangePasswordRequest represents a password change by a signed-in trainer
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ResetPasswordRequest represents a password reset with an emailed code
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func (h *AuthHandlers) respondAuth(c *gin.Context, status int, result *domain.AuthResult) {
	c.JSON(status, gin.H{"data": toAuthPayload(result, h.clock())})
}

func (h *AuthHandlers) respondDispatch(c *gin.Context, dispatch *domain.OTPDispatch) {
	c.JSON(http.StatusAccepted, gin.H{"data": toDispatchPayload(dispatch)})
}

// Register handles trainer registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), domain.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"trainer":  toTrainerPayload(result.Trainer),
			"decision": string(result.Decision),
			"otp":      toDispatchPayload(result.OTP),
		},
	})
}

// ResendEmailOTP re-sends the email verification code
func (h *AuthHandlers) ResendEmailOTP(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	dispatch, err := h.authSvc.ResendEmailOTP(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondDispatch(c, dispatch)
}

// VerifyEmailOTP verifies the email code and signs the trainer in
func (h *AuthHandlers) VerifyEmailOTP(c *gin.Context) {
	var req EmailOTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.authSvc.VerifyEmailOTP(c.Request.Context(), req.Email, req.Code, clientMeta(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondAuth(c, http.StatusOK, result)
}

// Login handles password login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondAuth(c, http.StatusOK, result)
}

// RequestPhoneOTP texts a sign-in code
func (h *AuthHandlers) RequestPhoneOTP(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	dispatch, err := h.authSvc.RequestPhoneOTP(c.Request.Context(), req.Phone)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondDispatch(c, dispatch)
}

// RetryPhoneOTP re-sends the phone code by text or voice
func (h *AuthHandlers) RetryPhoneOTP(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	dispatch, err := h.authSvc.RetryPhoneOTP(c.Request.Context(), req.Phone, domain.DeliveryMethod(req.Method))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondDispatch(c, dispatch)
}

// VerifyPhoneOTP verifies the phone code and signs the trainer in
func (h *AuthHandlers) VerifyPhoneOTP(c *gin.Context) {
	var req PhoneOTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.authSvc.VerifyPhoneOTP(c.Request.Context(), req.Phone, req.Code, req.Email, clientMeta(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondAuth(c, http.StatusOK, result)
}

// External handles Google sign-in for native and web clients
func (h *AuthHandlers) External(c *gin.Context) {
	var req ExternalAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.authSvc.AuthenticateWithExternalProvider(c.Request.Context(), domain.ExternalAuthInput{
		Client:      domain.ExternalClient(req.Client),
		IDToken:     req.IDToken,
		Code:        req.Code,
		RedirectURI: req.RedirectURI,
		Phone:       req.Phone,
	}, clientMeta(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondAuth(c, http.StatusOK, result)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken, req.SessionID, clientMeta(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondAuth(c, http.StatusOK, result)
}

// Logout revokes the presented refresh token
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LogoutAll ends every session of the signed-in trainer
func (h *AuthHandlers) LogoutAll(c *gin.Context) {
	trainerID := c.GetUint(middleware.TrainerIDKey)
	if err := h.authSvc.LogoutAll(c.Request.Context(), trainerID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword changes the password of the signed-in trainer
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	trainerID := c.GetUint(middleware.TrainerIDKey)
	if err := h.authSvc.ChangePassword(c.Request.Context(), trainerID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ForgotPassword emails a reset code. The response does not reveal whether
// the address is registered.
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.authSvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ResetPassword sets a new password using an emailed code
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.authSvc.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
