package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestApprovalStatus_HasOnboardingMilestone(t *testing.T) {
	tests := []struct {
		status   ApprovalStatus
		expected bool
	}{
		{ApprovalNone, false},
		{"", false},
		{ApprovalPending, true},
		{ApprovalApproved, true},
		{ApprovalRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.HasOnboardingMilestone(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTrainer_Accessors(t *testing.T) {
	tests := []struct {
		name          string
		trainer       *Trainer
		expectedEmail string
		expectedPhone string
		hasPassword   bool
	}{
		{
			name:    "nil trainer",
			trainer: nil,
		},
		{
			name:    "empty trainer",
			trainer: &Trainer{},
		},
		{
			name: "fully populated trainer",
			trainer: &Trainer{
				Email:        strPtr("coach@example.com"),
				Phone:        strPtr("+15550001111"),
				PasswordHash: strPtr("$2a$10$hash"),
			},
			expectedEmail: "coach@example.com",
			expectedPhone: "+15550001111",
			hasPassword:   true,
		},
		{
			name:    "empty password hash",
			trainer: &Trainer{PasswordHash: strPtr("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trainer.EmailValue(); got != tt.expectedEmail {
				t.Errorf("expected email %q, got %q", tt.expectedEmail, got)
			}
			if got := tt.trainer.PhoneValue(); got != tt.expectedPhone {
				t.Errorf("expected phone %q, got %q", tt.expectedPhone, got)
			}
			if got := tt.trainer.HasPassword(); got != tt.hasPassword {
				t.Errorf("expected HasPassword %v, got %v", tt.hasPassword, got)
			}
		})
	}
}

func TestRefreshTokenRecord_IsLive(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name     string
		record   RefreshTokenRecord
		expected bool
	}{
		{
			name:     "active record",
			record:   RefreshTokenRecord{ExpiresAt: now.Add(time.Hour)},
			expected: true,
		},
		{
			name:     "revoked record",
			record:   RefreshTokenRecord{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt},
			expected: false,
		},
		{
			name:     "expired record",
			record:   RefreshTokenRecord{ExpiresAt: now.Add(-time.Second)},
			expected: false,
		},
		{
			name:     "expiring exactly now",
			record:   RefreshTokenRecord{ExpiresAt: now},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IsLive(now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAuditEventBuilders(t *testing.T) {
	event := NewAuditEvent(TrainerLoginFailureEvent, 7).
		WithSession("sess-1").
		WithClient(ClientMeta{IP: "10.0.0.1", UserAgent: "ios/1.0"}).
		WithMetadata("remaining", "2").
		WithError(ErrInvalidCredentials)

	if event.Success {
		t.Error("event with error should not be successful")
	}
	if event.ErrorMsg != "invalid credentials" {
		t.Errorf("unexpected error message %q", event.ErrorMsg)
	}
	if event.SessionID != "sess-1" || event.IPAddress != "10.0.0.1" || event.UserAgent != "ios/1.0" {
		t.Errorf("client context not applied: %+v", event)
	}
	if event.Metadata["remaining"] != "2" {
		t.Errorf("metadata not applied: %+v", event.Metadata)
	}
}
