package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name         string
		err          *Error
		expectedKind Kind
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "ErrInvalidEmail",
			err:          ErrInvalidEmail,
			expectedKind: KindValidation,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "invalid email address",
		},
		{
			name:         "ErrPhoneUnavailable",
			err:          ErrPhoneUnavailable,
			expectedKind: KindConflict,
			expectedCode: http.StatusConflict,
			expectedMsg:  "phone number unavailable",
		},
		{
			name:         "ErrInvalidCredentials",
			err:          ErrInvalidCredentials,
			expectedKind: KindAuthFailed,
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "invalid credentials",
		},
		{
			name:         "ErrAccountLocked",
			err:          ErrAccountLocked,
			expectedKind: KindLocked,
			expectedCode: http.StatusLocked,
			expectedMsg:  "account temporarily locked",
		},
		{
			name:         "ErrRefreshInProgress",
			err:          ErrRefreshInProgress,
			expectedKind: KindRateLimited,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "refresh in progress, retry",
		},
		{
			name:         "ErrOTPAttemptsExceeded",
			err:          ErrOTPAttemptsExceeded,
			expectedKind: KindRateLimited,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "maximum otp attempts exceeded",
		},
		{
			name:         "ErrServiceUnavailable",
			err:          ErrServiceUnavailable,
			expectedKind: KindServiceUnavailable,
			expectedCode: http.StatusServiceUnavailable,
			expectedMsg:  "service temporarily unavailable",
		},
		{
			name:         "ErrInternal",
			err:          ErrInternal,
			expectedKind: KindInternal,
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.expectedKind {
				t.Errorf("expected kind %v, got %v", tt.expectedKind, tt.err.Kind)
			}
			if tt.err.Kind.HTTPStatus() != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, tt.err.Kind.HTTPStatus())
			}
			if tt.err.Error() != tt.expectedMsg {
				t.Errorf("expected error message %q, got %q", tt.expectedMsg, tt.err.Error())
			}

			// Test that these are different errors
			for _, other := range tests {
				if other.name != tt.name && errors.Is(tt.err, other.err) {
					t.Errorf("error %s should not be equal to %s", tt.name, other.name)
				}
			}
		})
	}
}

func TestErrorDecorationKeepsIdentity(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel *Error
	}{
		{
			name:     "with remaining attempts",
			err:      ErrInvalidCredentials.WithRemaining(3),
			sentinel: ErrInvalidCredentials,
		},
		{
			name:     "with retry after",
			err:      ErrAccountLocked.WithRetryAfter(time.Minute),
			sentinel: ErrAccountLocked,
		},
		{
			name:     "wrapped cause",
			err:      ErrServiceUnavailable.Wrap(cause),
			sentinel: ErrServiceUnavailable,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("login: %w", ErrOTPExpired.WithRetryAfter(0)),
			sentinel: ErrOTPExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected %v to match sentinel %v", tt.err, tt.sentinel)
			}
			if KindOf(tt.err) != tt.sentinel.Kind {
				t.Errorf("expected kind %v, got %v", tt.sentinel.Kind, KindOf(tt.err))
			}
		})
	}

	if !errors.Is(ErrServiceUnavailable.Wrap(cause), cause) {
		t.Error("wrapped cause should stay reachable")
	}
}

func TestDecorationDoesNotMutateSentinel(t *testing.T) {
	_ = ErrInvalidCredentials.WithRemaining(2)
	_ = ErrAccountLocked.WithRetryAfter(time.Hour)

	if ErrInvalidCredentials.RemainingAttempts != nil {
		t.Error("sentinel should not carry remaining attempts")
	}
	if ErrAccountLocked.RetryAfter != 0 {
		t.Error("sentinel should not carry retry after")
	}
}

func TestWithRetryAfterClampsNegative(t *testing.T) {
	err := ErrOTPResendThrottled.WithRetryAfter(-time.Second)
	if err.RetryAfter != 0 {
		t.Errorf("expected retry after 0, got %v", err.RetryAfter)
	}
}

func TestKindOfUntypedError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("untyped errors should classify as internal")
	}
	if KindOf(ErrRecordNotFound) != KindInternal {
		t.Error("store sentinels should classify as internal")
	}
}
