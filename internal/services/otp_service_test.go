package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/trainerauth/domain"
)

const otpEmail = "coach@example.com"

func TestOTPService_VerifyOrdering(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown subject", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, "123456")
		assert.ErrorIs(t, err, domain.ErrOTPNotFound)
	})

	t.Run("correct code succeeds once", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
		require.NoError(t, err)
		code := env.lastCode(t, otpEmail)

		require.NoError(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code))
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code), domain.ErrOTPNotFound)
	})

	t.Run("mismatch reports remaining attempts", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
		require.NoError(t, err)
		code := env.lastCode(t, otpEmail)

		err = env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, wrongCode(code))
		require.ErrorIs(t, err, domain.ErrOTPMismatch)
		de, ok := domain.AsError(err)
		require.True(t, ok)
		require.NotNil(t, de.RemainingAttempts)
		assert.Equal(t, DefaultOTPConfig().MaxAttempts-1, *de.RemainingAttempts)

		// the record survives a mismatch
		assert.NoError(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code))
	})

	t.Run("exhausted attempts win over a correct code", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
		require.NoError(t, err)
		code := env.lastCode(t, otpEmail)

		for i := 0; i < DefaultOTPConfig().MaxAttempts; i++ {
			assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, wrongCode(code)), domain.ErrOTPMismatch)
		}
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code), domain.ErrOTPAttemptsExceeded)

		// still exceeded after expiry
		env.clock.Advance(DefaultOTPConfig().TTL + time.Minute)
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code), domain.ErrOTPAttemptsExceeded)
	})

	t.Run("expired code is rejected and removed", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
		require.NoError(t, err)
		code := env.lastCode(t, otpEmail)

		env.clock.Advance(DefaultOTPConfig().TTL)
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code), domain.ErrOTPExpired)
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, code), domain.ErrOTPNotFound)
	})

	t.Run("channels are independent", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
		require.NoError(t, err)
		code := env.lastCode(t, otpEmail)

		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelPhone, code), domain.ErrOTPNotFound)
	})
}

func TestOTPService_IssueReplacesPreviousCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	require.NoError(t, err)
	first := env.lastCode(t, otpEmail)
	require.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, wrongCode(first)), domain.ErrOTPMismatch)

	env.mr.FastForward(DefaultOTPConfig().ResendWindow + time.Second)
	_, err = env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	require.NoError(t, err)
	second := env.lastCode(t, otpEmail)

	if first != second {
		assert.ErrorIs(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, first), domain.ErrOTPMismatch)
	}
	err = env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, wrongCode(second))
	de, ok := domain.AsError(err)
	require.True(t, ok)
	require.NotNil(t, de.RemainingAttempts)
	// a fresh record restarts the attempt budget
	assert.GreaterOrEqual(t, *de.RemainingAttempts, DefaultOTPConfig().MaxAttempts-2)
	assert.NoError(t, env.otp.Verify(ctx, otpEmail, domain.OTPChannelEmail, second))
}

func TestOTPService_ResendThrottle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	require.NoError(t, err)

	_, err = env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	require.ErrorIs(t, err, domain.ErrOTPResendThrottled)
	de, _ := domain.AsError(err)
	assert.Greater(t, de.RetryAfter, time.Duration(0))

	env.mr.FastForward(DefaultOTPConfig().ResendWindow)
	_, err = env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	assert.NoError(t, err)
}

func TestOTPService_PhoneDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	dispatch, err := env.otp.Issue(ctx, phone, domain.OTPChannelPhone, domain.DeliveryVoice)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryVoice, dispatch.Method)
	assert.Equal(t, env.clock.Now().Add(DefaultOTPConfig().TTL), dispatch.ExpiresAt)

	msg, ok := env.notifier.Last(phone)
	require.True(t, ok)
	assert.True(t, msg.Voice)
	// digits are read one by one
	assert.Regexp(t, `([0-9] ){5}[0-9]`, msg.Body)

	_, err = env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryVoice)
	assert.ErrorIs(t, err, domain.ErrInvalidChannel)
	_, err = env.otp.Issue(ctx, phone, domain.OTPChannel("fax"), domain.DeliveryText)
	assert.ErrorIs(t, err, domain.ErrInvalidChannel)
}

func TestOTPService_DeliveryFailureReleasesThrottle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	env.notifier.SendSMSFunc = func(ctx context.Context, to, message string) error {
		return errors.New("carrier rejected")
	}
	_, err := env.otp.Issue(ctx, phone, domain.OTPChannelPhone, domain.DeliveryText)
	require.ErrorIs(t, err, domain.ErrServiceUnavailable)

	env.notifier.SendSMSFunc = nil
	_, err = env.otp.Issue(ctx, phone, domain.OTPChannelPhone, domain.DeliveryText)
	require.NoError(t, err)
	msg, _ := env.notifier.Last(phone)
	assert.False(t, strings.Contains(msg.Body, "carrier"))
}

func TestOTPService_StoresOnlyHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.Issue(ctx, otpEmail, domain.OTPChannelEmail, domain.DeliveryText)
	require.NoError(t, err)
	code := env.lastCode(t, otpEmail)

	var stored string
	require.NoError(t, env.db.Table("otp_records").Select("code_hash").Where("subject_id = ?", otpEmail).Scan(&stored).Error)
	assert.NotEmpty(t, stored)
	assert.NotContains(t, stored, code)
	assert.Len(t, stored, 64)
}
