package app

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/config"
	httpx "github.com/you/trainerauth/internal/http"
	"github.com/you/trainerauth/internal/http/handlers"
	"github.com/you/trainerauth/internal/http/middleware"
	"github.com/you/trainerauth/internal/infrastructure/auth"
	"github.com/you/trainerauth/internal/infrastructure/notifications"
	"github.com/you/trainerauth/internal/infrastructure/repositories"
	"github.com/you/trainerauth/internal/logging"
	"github.com/you/trainerauth/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client

	// Repositories
	TrainerRepo domain.TrainerRepository
	TokenRepo   domain.RefreshTokenRepository
	SessionRepo domain.SessionRepository

	// Services
	PasswordSvc   domain.PasswordService
	TokenSvc      domain.TokenService
	CredentialSvc domain.CredentialService
	OTPSvc        domain.OTPService
	Rotator       domain.TokenRotator
	Resolver      domain.IdentityResolver
	AuthSvc       domain.AuthService
}

// NewContainer wires repositories and services over an open database and Redis client
func NewContainer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger, DB: db, RedisClient: rdb}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.TrainerRepo = repositories.NewTrainerRepository(c.DB)
	c.TokenRepo = repositories.NewRefreshTokenRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Config.SessionTTL)
}

func (c *Container) initServices() error {
	cfg := c.Config
	audit := logging.NewAuditLogger(c.Logger)

	passwords, err := auth.NewPasswordService(cfg.BcryptCost, cfg.Production())
	if err != nil {
		return err
	}
	c.PasswordSvc = passwords
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	c.CredentialSvc = services.NewCredentialService(
		passwords,
		repositories.NewFailedAttemptStore(c.RedisClient),
		services.LockoutConfig{
			Threshold:    cfg.LockoutThreshold,
			Window:       cfg.LockoutWindow,
			LockDuration: cfg.LockoutDuration,
		},
		c.Logger,
	)

	sms := notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)
	email := notifications.NewEmailService(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, c.Logger)
	c.OTPSvc = services.NewOTPService(
		repositories.NewOTPRepository(c.DB),
		repositories.NewThrottle(c.RedisClient),
		sms,
		email,
		services.OTPConfig{
			Length:       cfg.OTPLength,
			TTL:          cfg.OTPTTL,
			MaxAttempts:  cfg.OTPMaxAttempts,
			ResendWindow: cfg.OTPResendWindow,
			HashSecret:   cfg.OTPHashSecret,
			AppName:      cfg.AppName,
		},
		c.Logger,
	)

	rotator := services.NewTokenRotator(
		c.TrainerRepo,
		c.TokenRepo,
		c.SessionRepo,
		c.TokenSvc,
		repositories.NewLocker(c.RedisClient),
		audit,
		services.RotationConfig{
			SessionTTL: cfg.SessionTTL,
			ReuseGrace: cfg.ReuseGrace,
			LockWait:   cfg.LockWait,
			LockTTL:    cfg.LockTTL,
		},
		c.Logger,
	)
	c.Rotator = rotator
	c.Resolver = services.NewIdentityResolver(c.TrainerRepo, rotator, audit, c.Logger)

	deps := services.AuthServiceDeps{
		Trainers:    c.TrainerRepo,
		Credentials: c.CredentialSvc,
		OTP:         c.OTPSvc,
		Resolver:    c.Resolver,
		Rotator:     c.Rotator,
		Audit:       audit,
		Logger:      c.Logger,
	}
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
			Audience:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Logger:       c.Logger,
		})
		if err != nil {
			return err
		}
		deps.External = verifier
	} else {
		c.Logger.Info("google sign-in disabled: no client id configured")
	}
	c.AuthSvc = services.NewAuthService(deps)
	return nil
}

// Router builds the HTTP engine for the wired services
func (c *Container) Router() *gin.Engine {
	if c.Config.GinMode != "" {
		gin.SetMode(c.Config.GinMode)
	}
	authH := handlers.NewAuthHandlers(c.AuthSvc, c.Logger)
	jwtMW := middleware.NewAuthMW(c.TokenSvc, c.SessionRepo, c.Logger)
	return httpx.BuildRouter(authH, jwtMW, c.Config.AllowedOrigins)
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
