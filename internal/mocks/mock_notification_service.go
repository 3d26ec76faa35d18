package mocks

import (
	"context"
	"sync"

	"github.com/you/trainerauth/domain"
)

// SentMessage is a message captured by MockNotifier
type SentMessage struct {
	To      string
	Subject string
	Body    string
	Voice   bool
}

// MockNotifier implements domain.SMSGateway and domain.EmailSender, recording
// every message so tests can read back delivered codes
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentMessage

	SendSMSFunc        func(ctx context.Context, to, message string) error
	PlaceVoiceCallFunc func(ctx context.Context, to, message string) error
	SendEmailFunc      func(ctx context.Context, to, subject, body string) error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) record(msg SentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

// SendSMS records a text message
func (m *MockNotifier) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		if err := m.SendSMSFunc(ctx, to, message); err != nil {
			return err
		}
	}
	m.record(SentMessage{To: to, Body: message})
	return nil
}

// PlaceVoiceCall records a voice call
func (m *MockNotifier) PlaceVoiceCall(ctx context.Context, to, message string) error {
	if m.PlaceVoiceCallFunc != nil {
		if err := m.PlaceVoiceCallFunc(ctx, to, message); err != nil {
			return err
		}
	}
	m.record(SentMessage{To: to, Body: message, Voice: true})
	return nil
}

// SendEmail records an email
func (m *MockNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.SendEmailFunc != nil {
		if err := m.SendEmailFunc(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.record(SentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of every recorded message
func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// Last returns the latest message sent to recipient
func (m *MockNotifier) Last(to string) (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i], true
		}
	}
	return SentMessage{}, false
}

// Compile-time interface compliance verification
var (
	_ domain.SMSGateway  = (*MockNotifier)(nil)
	_ domain.EmailSender = (*MockNotifier)(nil)
)
