package channels

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

// NewSenders wires every channel from configuration. Twilio is optional:
// without credentials WhatsApp and SMS only log outside prod, and are left
// unset in prod so those notifications fail and stay visible.
func NewSenders(cfg config.Config, logger zerolog.Logger) (notification.Senders, error) {
	email, err := NewEmailSender(cfg, logger)
	if err != nil {
		return notification.Senders{}, err
	}

	senders := notification.Senders{
		Email:          email,
		DefaultSubject: cfg.Notification.DefaultSubject,
	}

	tw, err := NewTwilioSender(cfg.Twilio, cfg.Notification.DefaultCountryCode, logger)
	switch {
	case err == nil:
		senders.WhatsApp, senders.SMS = tw, tw
	case errors.Is(err, ErrNotConfigured) && cfg.Env != "prod":
		logger.Warn().Msg("twilio not configured, whatsapp and sms will only be logged")
		stub := NewLogSender(logger)
		senders.WhatsApp, senders.SMS = stub, stub
	case errors.Is(err, ErrNotConfigured):
		logger.Warn().Msg("twilio not configured, whatsapp and sms notifications will fail")
	default:
		return notification.Senders{}, err
	}

	return senders, nil
}
