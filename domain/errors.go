package domain

import (
	"errors"
	"net/http"
	"time"
)

// Kind is the error taxonomy exposed to callers
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthFailed
	KindLocked
	KindRateLimited
	KindServiceUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindAuthFailed:
		return "auth_failed"
	case KindLocked:
		return "locked"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to a response status
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthFailed:
		return http.StatusUnauthorized
	case KindLocked:
		return http.StatusLocked
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed domain error. Two errors match under errors.Is when their codes match,
// so decorated copies still compare equal to the sentinel they came from.
type Error struct {
	Kind              Kind
	Code              string
	Message           string
	RemainingAttempts *int
	RetryAfter        time.Duration
	Err               error
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithRemaining returns a copy carrying the remaining attempt budget
func (e *Error) WithRemaining(n int) *Error {
	c := *e
	c.RemainingAttempts = &n
	return &c
}

// WithRetryAfter returns a copy telling the client when to retry
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	c := *e
	if d < 0 {
		d = 0
	}
	c.RetryAfter = d
	return &c
}

// Wrap returns a copy with the underlying cause attached
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// AsError extracts the typed domain error, if any
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf classifies any error; untyped errors are internal
func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}

// Validation errors
var (
	ErrInvalidEmail    = newError(KindValidation, "invalid_email", "invalid email address")
	ErrInvalidPhone    = newError(KindValidation, "invalid_phone", "invalid phone number")
	ErrWeakPassword    = newError(KindValidation, "weak_password", "password does not meet requirements")
	ErrMissingField    = newError(KindValidation, "missing_field", "required field missing")
	ErrInvalidChannel  = newError(KindValidation, "invalid_channel", "unsupported delivery channel")
	ErrInvalidProvider = newError(KindValidation, "invalid_provider_input", "external sign-in requires an id token or an authorization code")
)

// Conflict errors
var (
	ErrEmailTaken       = newError(KindConflict, "email_taken", "email already registered")
	ErrPhoneUnavailable = newError(KindConflict, "phone_unavailable", "phone number unavailable")
	ErrContactTaken     = newError(KindConflict, "contact_unavailable", "email or phone unavailable")
	ErrEmailVerified    = newError(KindConflict, "email_already_verified", "email already verified")
)

// Authentication errors
var (
	ErrInvalidCredentials = newError(KindAuthFailed, "invalid_credentials", "invalid credentials")
	ErrTrainerNotFound    = newError(KindAuthFailed, "trainer_not_found", "trainer not found")
	ErrEmailNotVerified   = newError(KindAuthFailed, "email_not_verified", "email address not verified")
	ErrExternalAuthFailed = newError(KindAuthFailed, "external_auth_failed", "external identity could not be verified")
	ErrAccountLocked      = newError(KindLocked, "account_locked", "account temporarily locked")
)

// OTP errors
var (
	ErrOTPNotFound         = newError(KindAuthFailed, "otp_not_found", "otp not found")
	ErrOTPExpired          = newError(KindAuthFailed, "otp_expired", "otp has expired")
	ErrOTPMismatch         = newError(KindAuthFailed, "otp_mismatch", "invalid otp code")
	ErrOTPAttemptsExceeded = newError(KindRateLimited, "otp_attempts_exceeded", "maximum otp attempts exceeded")
	ErrOTPResendThrottled  = newError(KindRateLimited, "otp_resend_throttled", "otp recently sent, retry later")
)

// Token errors
var (
	ErrTokenInvalid       = newError(KindAuthFailed, "token_invalid", "invalid token")
	ErrTokenExpired       = newError(KindAuthFailed, "token_expired", "token has expired")
	ErrTokenNotRecognized = newError(KindAuthFailed, "token_not_recognized", "refresh token not recognized")
	ErrTokenRevoked       = newError(KindAuthFailed, "token_revoked", "refresh token has been revoked")
	ErrRefreshTokenReused = newError(KindAuthFailed, "token_already_used", "refresh token already used, use the latest token")
	ErrSessionMismatch    = newError(KindAuthFailed, "session_mismatch", "refresh token does not belong to session")
	ErrRefreshInProgress  = newError(KindRateLimited, "refresh_in_progress", "refresh in progress, retry")
)

// Infrastructure errors
var (
	ErrServiceUnavailable = newError(KindServiceUnavailable, "service_unavailable", "service temporarily unavailable")
	ErrInternal           = newError(KindInternal, "internal", "internal error")
)

// Store-level sentinels, never returned to callers unchanged
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrLockNotHeld     = errors.New("lock not held")
	ErrLockUnavailable = errors.New("lock unavailable")
)
