package services

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/you/trainerauth/domain"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// NormalizeEmail trims and lower-cases an address, rejecting display-name forms
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", domain.ErrInvalidEmail
	}
	return trimmed, nil
}

// NormalizePhone strips common separators and requires E.164 form
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	normalized := b.String()
	if !e164Pattern.MatchString(normalized) {
		return "", domain.ErrInvalidPhone
	}
	return normalized, nil
}

// ValidatePassword requires 8 to 72 bytes with at least one letter and one digit
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return domain.ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return domain.ErrWeakPassword
	}
	return nil
}
