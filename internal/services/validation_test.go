package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/trainerauth/domain"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lower-cases and trims", input: "  Coach@Example.COM ", want: "coach@example.com"},
		{name: "plain address", input: "a@x.com", want: "a@x.com"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "missing domain", input: "coach@", wantErr: true},
		{name: "display name form", input: "Coach <coach@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidEmail)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "e164", input: "+15551112222", want: "+15551112222"},
		{name: "separators stripped", input: "+1 (555) 111-2222", want: "+15551112222"},
		{name: "missing plus", input: "15551112222", wantErr: true},
		{name: "too short", input: "+1555", wantErr: true},
		{name: "letters", input: "+1555CALLNOW", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPhone)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "letters and digits", password: "trainer123", valid: true},
		{name: "too short", password: "abc123", valid: false},
		{name: "no digit", password: "trainerpass", valid: false},
		{name: "no letter", password: "12345678", valid: false},
		{name: "too long", password: strings.Repeat("a1", 37), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrWeakPassword)
			}
		})
	}
}
