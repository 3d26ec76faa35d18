package notifications

import (
	"context"
	"fmt"
	"html"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/you/trainerauth/domain"
	"go.uber.org/zap"
)

// twilioAPI is the slice of the Twilio REST API used here
type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioServiceImpl implements domain.SMSGateway
type TwilioServiceImpl struct {
	api        twilioAPI
	fromNumber string
	logger     *zap.Logger
}

var _ domain.SMSGateway = (*TwilioServiceImpl)(nil)

// NewTwilioService creates a new Twilio gateway. Without a sender number it runs
// in dry-run mode and only logs that a message would have gone out.
func NewTwilioService(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioServiceImpl {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioService(client.Api, fromNumber, logger)
}

func newTwilioService(api twilioAPI, fromNumber string, logger *zap.Logger) *TwilioServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioServiceImpl{api: api, fromNumber: fromNumber, logger: logger}
}

// SendSMS implements domain.SMSGateway
func (t *TwilioServiceImpl) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fromNumber == "" {
		t.logger.Info("sms dry run", zap.String("to", MaskPhone(to)))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

// PlaceVoiceCall reads message aloud twice
func (t *TwilioServiceImpl) PlaceVoiceCall(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fromNumber == "" {
		t.logger.Info("voice call dry run", zap.String("to", MaskPhone(to)))
		return nil
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetTwiml(fmt.Sprintf(`<Response><Say loop="2">%s</Say></Response>`, html.EscapeString(message)))

	if _, err := t.api.CreateCall(params); err != nil {
		return fmt.Errorf("failed to place voice call: %w", err)
	}
	return nil
}

// MaskPhone keeps the last four digits
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
