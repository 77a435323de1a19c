package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	ErrInvalidType    = apperr.Validation("invalid_notification_type", "unknown notification type")
	ErrInvalidChannel = apperr.Validation("invalid_channel", "unknown notification channel")
	ErrEmptyBody      = apperr.Validation("empty_template_body", "template body is required")
)

// Admin serves the read and configuration side of notifications.
type Admin struct {
	repo Repository
	log  zerolog.Logger
}

func NewAdmin(repo Repository, logger zerolog.Logger) *Admin {
	return &Admin{repo: repo, log: logger.With().Str("component", "notification_admin").Logger()}
}

func (a *Admin) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validationf("invalid_status", "unknown notification status %q", f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidType
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, total, err := a.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Notification{}
	}
	return &Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (a *Admin) Stats(ctx context.Context, from, to *time.Time) (*Stats, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperr.Validation("invalid_range", "range end is before its start")
	}
	return a.repo.Stats(ctx, from, to)
}

func (a *Admin) ListConfigs(ctx context.Context) ([]Config, error) {
	list, err := a.repo.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Config{}
	}
	return list, nil
}

// UpsertConfig stores the channel switches and send window of one type.
func (a *Admin) UpsertConfig(ctx context.Context, c Config) (*Config, error) {
	if !c.Type.Valid() {
		return nil, ErrInvalidType
	}
	start, err := schedule.ParseTimeOfDay(c.WindowStart)
	if err != nil {
		return nil, apperr.Validationf("invalid_time", "invalid send window start %q, expected HH:MM", c.WindowStart)
	}
	end, err := schedule.ParseTimeOfDay(c.WindowEnd)
	if err != nil {
		return nil, apperr.Validationf("invalid_time", "invalid send window end %q, expected HH:MM", c.WindowEnd)
	}
	// Stored zero-padded so lexical comparison matches time order.
	c.WindowStart, c.WindowEnd = start.String(), end.String()

	saved, err := a.repo.UpsertConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("upsert notification config: %w", err)
	}
	a.log.Info().
		Str("type", string(saved.Type)).
		Bool("email", saved.EmailEnabled).
		Bool("whatsapp", saved.WhatsAppEnabled).
		Bool("sms", saved.SMSEnabled).
		Msg("notification config updated")
	return saved, nil
}

func (a *Admin) ListTemplates(ctx context.Context) ([]Template, error) {
	list, err := a.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Template{}
	}
	return list, nil
}

// CreateTemplate adds a template. A newer active template of the same type
// and channel takes precedence over older ones.
func (a *Admin) CreateTemplate(ctx context.Context, t Template) (*Template, error) {
	if !t.Type.Valid() {
		return nil, ErrInvalidType
	}
	if !t.Channel.Valid() {
		return nil, ErrInvalidChannel
	}
	if strings.TrimSpace(t.Body) == "" {
		return nil, ErrEmptyBody
	}
	if t.Channel != ChannelEmail {
		t.Subject = nil
	}
	if len(t.Variables) == 0 {
		t.Variables = KnownTokens()
	}

	created, err := a.repo.CreateTemplate(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create notification template: %w", err)
	}
	a.log.Info().
		Str("template_id", created.ID.String()).
		Str("type", string(created.Type)).
		Str("channel", string(created.Channel)).
		Msg("notification template created")
	return created, nil
}
