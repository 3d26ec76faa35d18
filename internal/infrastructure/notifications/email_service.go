package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailServiceImpl implements domain.EmailSender over SMTP
type EmailServiceImpl struct {
	dialer mailDialer
	from   string
	logger *zap.Logger
}

var _ domain.EmailSender = (*EmailServiceImpl)(nil)

// NewEmailService creates an SMTP sender. An empty host selects dry-run mode.
func NewEmailService(cfg SMTPConfig, logger *zap.Logger) *EmailServiceImpl {
	var dialer mailDialer
	if cfg.Host != "" {
		dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return newEmailService(dialer, cfg.From, logger)
}

func newEmailService(dialer mailDialer, from string, logger *zap.Logger) *EmailServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailServiceImpl{dialer: dialer, from: from, logger: logger}
}

// SendEmail implements domain.EmailSender
func (s *EmailServiceImpl) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dialer == nil {
		s.logger.Info("email dry run", zap.String("to", MaskEmail(to)), zap.String("subject", subject))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// MaskEmail keeps the first character of the local part and the domain
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
