package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
	"go.uber.org/zap"
)

// OTPConfig configures one-time code issuance
type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	HashSecret   string
	AppName      string
}

// DefaultOTPConfig returns 6-digit codes valid for 10 minutes, 5 attempts, 60s resend window
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		Length:       6,
		TTL:          10 * time.Minute,
		MaxAttempts:  5,
		ResendWindow: time.Minute,
		AppName:      "Trainer",
	}
}

// OTPServiceImpl implements domain.OTPService. Only an HMAC of each code is stored.
type OTPServiceImpl struct {
	repo     domain.OTPRepository
	throttle domain.Throttle
	sms      domain.SMSGateway
	email    domain.EmailSender
	config   OTPConfig
	retry    retry.Policy
	clock    func() time.Time
	logger   *zap.Logger
}

// NewOTPService creates a new OTP service
func NewOTPService(repo domain.OTPRepository, throttle domain.Throttle, sms domain.SMSGateway, email domain.EmailSender, config OTPConfig, logger *zap.Logger) *OTPServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPServiceImpl{
		repo:     repo,
		throttle: throttle,
		sms:      sms,
		email:    email,
		config:   config,
		retry:    retry.DefaultPolicy(),
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source
func (s *OTPServiceImpl) WithClock(clock func() time.Time) *OTPServiceImpl {
	s.clock = clock
	return s
}

// WithRetryPolicy overrides the store retry policy
func (s *OTPServiceImpl) WithRetryPolicy(p retry.Policy) *OTPServiceImpl {
	s.retry = p
	return s
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)

func throttleKey(subjectID string, channel domain.OTPChannel) string {
	return fmt.Sprintf("otp_resend:%s:%s", channel, subjectID)
}

// Issue generates a code, replaces any previous one for the pair and dispatches it
func (s *OTPServiceImpl) Issue(ctx context.Context, subjectID string, channel domain.OTPChannel, method domain.DeliveryMethod) (*domain.OTPDispatch, error) {
	if method == "" {
		method = domain.DeliveryText
	}
	switch {
	case channel == domain.OTPChannelEmail && method == domain.DeliveryText:
	case channel == domain.OTPChannelPhone && (method == domain.DeliveryText || method == domain.DeliveryVoice):
	default:
		return nil, domain.ErrInvalidChannel
	}

	key := throttleKey(subjectID, channel)
	allowed, retryAfter, err := s.throttle.Allow(ctx, key, s.config.ResendWindow)
	if err != nil {
		return nil, classify(s.retry, err)
	}
	if !allowed {
		return nil, domain.ErrOTPResendThrottled.WithRetryAfter(retryAfter)
	}

	code, err := s.generateSecureCode()
	if err != nil {
		s.releaseThrottle(ctx, key)
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	expiresAt := s.clock().Add(s.config.TTL)
	record := &domain.OTPRecord{
		SubjectID: subjectID,
		Channel:   channel,
		CodeHash:  s.hashCode(subjectID, channel, code),
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Replace(ctx, record); err != nil {
		s.releaseThrottle(ctx, key)
		return nil, classify(s.retry, fmt.Errorf("failed to store OTP: %w", err))
	}

	if err := s.deliver(ctx, subjectID, channel, method, code); err != nil {
		s.releaseThrottle(ctx, key)
		s.logger.Warn("otp delivery failed",
			zap.String("channel", string(channel)),
			zap.String("method", string(method)),
			zap.Error(err))
		return nil, domain.ErrServiceUnavailable.Wrap(err)
	}

	return &domain.OTPDispatch{Channel: channel, Method: method, ExpiresAt: expiresAt}, nil
}

// a failed issue must not block the caller from trying again immediately
func (s *OTPServiceImpl) releaseThrottle(ctx context.Context, key string) {
	if err := s.throttle.Reset(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to reset otp throttle", zap.Error(err))
	}
}

func (s *OTPServiceImpl) deliver(ctx context.Context, subjectID string, channel domain.OTPChannel, method domain.DeliveryMethod, code string) error {
	minutes := int(s.config.TTL.Minutes())
	switch {
	case channel == domain.OTPChannelEmail:
		subject := fmt.Sprintf("Your %s verification code", s.config.AppName)
		body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
		return s.email.SendEmail(ctx, subjectID, subject, body)
	case method == domain.DeliveryVoice:
		spoken := strings.Join(strings.Split(code, ""), " ")
		return s.sms.PlaceVoiceCall(ctx, subjectID, fmt.Sprintf("Your %s verification code is %s. Again, %s.", s.config.AppName, spoken, spoken))
	default:
		return s.sms.SendSMS(ctx, subjectID, fmt.Sprintf("Your %s verification code is %s. Valid for %d minutes.", s.config.AppName, code, minutes))
	}
}

// Verify checks existence, then attempt limit, then expiry, then the code itself.
// The rejection paths that mutate the record still commit.
func (s *OTPServiceImpl) Verify(ctx context.Context, subjectID string, channel domain.OTPChannel, code string) error {
	now := s.clock()
	var outcome error

	err := s.repo.WithinTransaction(ctx, func(tx domain.OTPRepository) error {
		record, err := tx.FindForUpdate(ctx, subjectID, channel)
		if isNotFound(err) {
			outcome = domain.ErrOTPNotFound
			return nil
		}
		if err != nil {
			return err
		}

		if record.AttemptCount >= s.config.MaxAttempts {
			outcome = domain.ErrOTPAttemptsExceeded
			return nil
		}
		if !now.Before(record.ExpiresAt) {
			outcome = domain.ErrOTPExpired
			return tx.Delete(ctx, record.ID)
		}
		if !hmac.Equal([]byte(record.CodeHash), []byte(s.hashCode(subjectID, channel, code))) {
			outcome = domain.ErrOTPMismatch.WithRemaining(s.config.MaxAttempts - record.AttemptCount - 1)
			return tx.IncrementAttempts(ctx, record.ID)
		}
		return tx.Delete(ctx, record.ID)
	})
	if err != nil {
		return classify(s.retry, fmt.Errorf("failed to verify OTP: %w", err))
	}
	return outcome
}

func (s *OTPServiceImpl) hashCode(subjectID string, channel domain.OTPChannel, code string) string {
	mac := hmac.New(sha256.New, []byte(s.config.HashSecret))
	mac.Write([]byte(string(channel) + "|" + subjectID + "|" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateSecureCode generates a cryptographically secure numeric code
func (s *OTPServiceImpl) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)
	for i := range digits {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits), nil
}
