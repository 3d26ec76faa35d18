package logging

import (
	"context"

	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
)

// ZapAuditLogger writes audit events as structured log lines on a dedicated logger
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit logger; nil selects a no-op logger
func NewAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditLogger{logger: logger.Named("audit")}
}

var _ domain.AuditLogger = (*ZapAuditLogger)(nil)

// LogEvent implements domain.AuditLogger. Failed events are written at warn level.
func (a *ZapAuditLogger) LogEvent(_ context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Uint("trainer_id", event.TrainerID),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID))
	}
	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip", event.IPAddress))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
	}

	if event.Success {
		a.logger.Info("audit", fields...)
		return
	}
	a.logger.Warn("audit", fields...)
}
