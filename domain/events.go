package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Authentication events
	TrainerLoginEvent        AuditEventType = "TRAINER_LOGIN"
	TrainerLoginFailureEvent AuditEventType = "TRAINER_LOGIN_FAILED"
	TrainerLockedEvent       AuditEventType = "TRAINER_LOCKED"
	TrainerRegisteredEvent   AuditEventType = "TRAINER_REGISTERED"

	// Identity events
	PhoneTransferredEvent AuditEventType = "PHONE_TRANSFERRED"
	PhoneConflictEvent    AuditEventType = "PHONE_CONFLICT"
	EmailVerifiedEvent    AuditEventType = "EMAIL_VERIFIED"
	PhoneVerifiedEvent    AuditEventType = "PHONE_VERIFIED"
	ExternalLinkedEvent   AuditEventType = "EXTERNAL_IDENTITY_LINKED"

	// Token events
	TokenRotatedEvent      AuditEventType = "TOKEN_ROTATED"
	TokenReuseEvent        AuditEventType = "TOKEN_REUSE_DETECTED"
	TrainerLogoutEvent     AuditEventType = "TRAINER_LOGOUT"
	TrainerLogoutAllEvent  AuditEventType = "TRAINER_LOGOUT_ALL"
	PasswordChangedEvent   AuditEventType = "PASSWORD_CHANGED"
	PasswordResetDoneEvent AuditEventType = "PASSWORD_RESET"
)

// AuditEvent represents a security-relevant event
type AuditEvent struct {
	EventType AuditEventType    `json:"event_type"`
	TrainerID uint              `json:"trainer_id"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ErrorMsg  string            `json:"error_msg,omitempty"`
	Success   bool              `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, trainerID uint) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		TrainerID: trainerID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]string),
		Success:   true,
	}
}

// WithError marks the event failed
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithSession sets the session id
func (e *AuditEvent) WithSession(sessionID string) *AuditEvent {
	e.SessionID = sessionID
	return e
}

// WithClient sets client information
func (e *AuditEvent) WithClient(meta ClientMeta) *AuditEvent {
	e.IPAddress = meta.IP
	e.UserAgent = meta.UserAgent
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key, value string) *AuditEvent {
	e.Metadata[key] = value
	return e
}
