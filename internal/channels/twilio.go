package channels

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

const whatsAppPrefix = "whatsapp:"

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends WhatsApp and SMS messages through the Twilio
// Messages API. Recipients are normalized to E.164 before sending.
type TwilioSender struct {
	api         messageCreator
	whatsAppNum string
	smsNum      string
	countryCode string
	log         zerolog.Logger
}

func NewTwilioSender(cfg config.TwilioConfig, countryCode string, logger zerolog.Logger) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio: %w", ErrNotConfigured)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{
		api:         client.Api,
		whatsAppNum: cfg.WhatsAppNumber,
		smsNum:      cfg.SMSNumber,
		countryCode: countryCode,
		log:         logger.With().Str("component", "twilio_sender").Logger(),
	}, nil
}

var (
	_ notification.WhatsAppSender = (*TwilioSender)(nil)
	_ notification.SMSSender      = (*TwilioSender)(nil)
)

func (s *TwilioSender) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	if s.whatsAppNum == "" {
		return "", fmt.Errorf("twilio whatsapp number: %w", ErrNotConfigured)
	}
	return s.send(ctx, whatsAppPrefix+s.whatsAppNum, whatsAppPrefix+NormalizePhone(to, s.countryCode), body)
}

// SendSMS uses the SMS number when set, else the WhatsApp one.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	from := s.smsNum
	if from == "" {
		from = s.whatsAppNum
	}
	if from == "" {
		return "", fmt.Errorf("twilio sms number: %w", ErrNotConfigured)
	}
	return s.send(ctx, from, NormalizePhone(to, s.countryCode), body)
}

func (s *TwilioSender) send(ctx context.Context, from, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}

	var sid string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.log.Debug().Str("to", to).Str("sid", sid).Msg("message sent")
	return sid, nil
}
