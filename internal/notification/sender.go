package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var deliveryTracer = otel.Tracer("clinic.internal.notification.delivery")

var ErrChannelUnavailable = apperr.New(apperr.KindInternal, "channel_unavailable", "no sender configured for channel")

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// WhatsAppSender and SMSSender return the provider message id on success.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// Senders bundles the channel clients. A nil sender makes its channel fail
// with ErrChannelUnavailable.
type Senders struct {
	Email          EmailSender
	WhatsApp       WhatsAppSender
	SMS            SMSSender
	DefaultSubject string
}

// deliver sends n through its channel. Provider failures come back as
// transient errors so the retry job picks them up.
func (s Senders) deliver(ctx context.Context, n Notification) (string, error) {
	ctx, span := deliveryTracer.Start(ctx, "notification.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.notification_id", n.ID.String()),
		attribute.String("clinic.notification_type", string(n.Type)),
		attribute.String("clinic.channel", string(n.Channel)),
		attribute.Int("clinic.attempt", n.Attempts+1),
	)

	messageID, err := s.send(ctx, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if messageID != "" {
		span.SetAttributes(attribute.String("clinic.provider_message_id", messageID))
	}
	return messageID, nil
}

func (s Senders) send(ctx context.Context, n Notification) (string, error) {
	switch n.Channel {
	case ChannelEmail:
		if s.Email == nil {
			return "", ErrChannelUnavailable
		}
		subject := s.DefaultSubject
		if n.Subject != nil && *n.Subject != "" {
			subject = *n.Subject
		}
		if err := s.Email.SendEmail(ctx, EmailMessage{To: n.Recipient, Subject: subject, HTML: n.Body}); err != nil {
			return "", apperr.Transient("email_send_failed", "email send failed", err)
		}
		return "", nil

	case ChannelWhatsApp:
		if s.WhatsApp == nil {
			return "", ErrChannelUnavailable
		}
		id, err := s.WhatsApp.SendWhatsApp(ctx, n.Recipient, n.Body)
		if err != nil {
			return "", apperr.Transient("whatsapp_send_failed", "whatsapp send failed", err)
		}
		return id, nil

	case ChannelSMS:
		if s.SMS == nil {
			return "", ErrChannelUnavailable
		}
		id, err := s.SMS.SendSMS(ctx, n.Recipient, n.Body)
		if err != nil {
			return "", apperr.Transient("sms_send_failed", "sms send failed", err)
		}
		return id, nil
	}

	return "", fmt.Errorf("unknown channel %q", n.Channel)
}
