package httpx

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/you/trainerauth/internal/http/handlers"
	"github.com/you/trainerauth/internal/http/middleware"
)

// BuildRouter wires the auth endpoints. Session-scoped routes sit behind the bearer middleware.
func BuildRouter(ah *handlers.AuthHandlers, jwtmw *middleware.AuthMW, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	auth := r.Group("/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/email/resend", ah.ResendEmailOTP)
	auth.POST("/email/verify", ah.VerifyEmailOTP)
	auth.POST("/login", ah.Login)
	auth.POST("/phone/otp", ah.RequestPhoneOTP)
	auth.POST("/phone/retry", ah.RetryPhoneOTP)
	auth.POST("/phone/verify", ah.VerifyPhoneOTP)
	auth.POST("/external", ah.External)
	auth.POST("/refresh", ah.Refresh)
	auth.POST("/logout", ah.Logout)
	auth.POST("/password/forgot", ah.ForgotPassword)
	auth.POST("/password/reset", ah.ResetPassword)

	v := r.Group("/auth").Use(jwtmw.WithJWT())
	v.POST("/logout-all", ah.LogoutAll)
	v.POST("/password/change", ah.ChangePassword)

	return r
}
