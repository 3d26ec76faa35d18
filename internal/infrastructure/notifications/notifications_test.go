package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

type fakeTwilio struct {
	messages []*twilioApi.CreateMessageParams
	calls    []*twilioApi.CreateCallParams
	err      error
}

func (f *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.messages = append(f.messages, params)
	return &twilioApi.ApiV2010Message{}, f.err
}

func (f *fakeTwilio) CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error) {
	f.calls = append(f.calls, params)
	return &twilioApi.ApiV2010Call{}, f.err
}

func TestTwilioServiceImpl_SendSMS(t *testing.T) {
	api := &fakeTwilio{}
	svc := newTwilioService(api, "+15550000000", nil)

	require.NoError(t, svc.SendSMS(context.Background(), "+15551112222", "Your code is 123456"))
	require.Len(t, api.messages, 1)
	assert.Equal(t, "+15551112222", *api.messages[0].To)
	assert.Equal(t, "+15550000000", *api.messages[0].From)
	assert.Equal(t, "Your code is 123456", *api.messages[0].Body)
}

func TestTwilioServiceImpl_PlaceVoiceCall(t *testing.T) {
	api := &fakeTwilio{}
	svc := newTwilioService(api, "+15550000000", nil)

	require.NoError(t, svc.PlaceVoiceCall(context.Background(), "+15551112222", "Your code is 1 2 3 <4>"))
	require.Len(t, api.calls, 1)
	twiml := *api.calls[0].Twiml
	assert.True(t, strings.HasPrefix(twiml, "<Response><Say"))
	assert.Contains(t, twiml, "1 2 3 &lt;4&gt;")
}

func TestTwilioServiceImpl_Errors(t *testing.T) {
	api := &fakeTwilio{err: errors.New("twilio down")}
	svc := newTwilioService(api, "+15550000000", nil)

	assert.ErrorContains(t, svc.SendSMS(context.Background(), "+1555", "x"), "failed to send SMS")
	assert.ErrorContains(t, svc.PlaceVoiceCall(context.Background(), "+1555", "x"), "failed to place voice call")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendSMS(ctx, "+1555", "x"), context.Canceled)
}

func TestTwilioServiceImpl_DryRun(t *testing.T) {
	api := &fakeTwilio{}
	svc := newTwilioService(api, "", nil)

	require.NoError(t, svc.SendSMS(context.Background(), "+15551112222", "code"))
	require.NoError(t, svc.PlaceVoiceCall(context.Background(), "+15551112222", "code"))
	assert.Empty(t, api.messages)
	assert.Empty(t, api.calls)
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailServiceImpl_SendEmail(t *testing.T) {
	dialer := &fakeDialer{}
	svc := newEmailService(dialer, "no-reply@example.com", nil)

	require.NoError(t, svc.SendEmail(context.Background(), "coach@example.com", "Your code", "123456"))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"coach@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"no-reply@example.com"}, dialer.sent[0].GetHeader("From"))

	dialer.err = errors.New("smtp refused")
	assert.ErrorContains(t, svc.SendEmail(context.Background(), "coach@example.com", "s", "b"), "failed to send email")

	dry := NewEmailService(SMTPConfig{}, nil)
	assert.NoError(t, dry.SendEmail(context.Background(), "coach@example.com", "s", "b"))
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "****2222", MaskPhone("+15551112222"))
	assert.Equal(t, "****", MaskPhone("12"))
	assert.Equal(t, "c***@example.com", MaskEmail("coach@example.com"))
	assert.Equal(t, "***", MaskEmail("nope"))
}
