package channels

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

var ErrNotConfigured = errors.New("channel not configured")

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphEnd = regexp.MustCompile(`(?i)</p>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// htmlToText is the plain-text alternative sent next to the HTML body.
func htmlToText(html string) string {
	s := lineBreakTag.ReplaceAllString(html, "\n")
	s = paragraphEnd.ReplaceAllString(s, "\n\n")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	dialer   mailDialer
	from     string
	fromName string
	log      zerolog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger zerolog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL

	return &SMTPSender{
		dialer:   d,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      logger.With().Str("component", "smtp_sender").Logger(),
	}, nil
}

var _ notification.EmailSender = (*SMTPSender)(nil)

func (s *SMTPSender) SendEmail(ctx context.Context, msg notification.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", htmlToText(msg.HTML))
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers email through the SendGrid v3 API.
type SendGridSender struct {
	client   sendGridClient
	from     string
	fromName string
	log      zerolog.Logger
}

func NewSendGridSender(cfg config.SendGridConfig, logger zerolog.Logger) (*SendGridSender, error) {
	if cfg.APIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("sendgrid: %w", ErrNotConfigured)
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      logger.With().Str("component", "sendgrid_sender").Logger(),
	}, nil
}

var _ notification.EmailSender = (*SendGridSender)(nil)

func (s *SendGridSender) SendEmail(ctx context.Context, msg notification.EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, htmlToText(msg.HTML), msg.HTML)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	s.log.Debug().Str("to", msg.To).Int("status", resp.StatusCode).Msg("email sent")
	return nil
}

// LogSender only logs outgoing messages. Used in development and when no
// provider credentials are configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{log: logger.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) SendEmail(_ context.Context, msg notification.EmailMessage) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email (not sent)")
	return nil
}

func (s *LogSender) SendWhatsApp(_ context.Context, to, body string) (string, error) {
	s.log.Info().Str("to", to).Int("length", len(body)).Msg("whatsapp (not sent)")
	return "", nil
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) (string, error) {
	s.log.Info().Str("to", to).Int("length", len(body)).Msg("sms (not sent)")
	return "", nil
}

// NewEmailSender picks the configured email provider. An unknown or
// unconfigured provider falls back to LogSender outside prod.
func NewEmailSender(cfg config.Config, logger zerolog.Logger) (notification.EmailSender, error) {
	var (
		sender notification.EmailSender
		err    error
	)
	switch cfg.Notification.EmailProvider {
	case "smtp":
		sender, err = NewSMTPSender(cfg.SMTP, logger)
	case "sendgrid":
		sender, err = NewSendGridSender(cfg.SendGrid, logger)
	case "stub", "log":
		return NewLogSender(logger), nil
	default:
		err = fmt.Errorf("unknown email provider %q", cfg.Notification.EmailProvider)
	}
	if err == nil {
		return sender, nil
	}
	if cfg.Env == "prod" {
		return nil, err
	}
	logger.Warn().Err(err).Msg("email provider unavailable, logging emails instead")
	return NewLogSender(logger), nil
}
