package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/clock"
)

const (
	reminder24hLead = 24 * time.Hour
	reminder2hLead  = 2 * time.Hour
)

// Scheduler turns appointment events into notification records and sends
// the ones that are due immediately. Delivery failures are recorded on the
// notification and never returned.
type Scheduler struct {
	repo    Repository
	senders Senders
	clock   clock.Clock
	loc     *time.Location
	metrics *Metrics
	log     zerolog.Logger
}

func NewScheduler(repo Repository, senders Senders, clk clock.Clock, loc *time.Location, metrics *Metrics, logger zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		repo:    repo,
		senders: senders,
		clock:   clk,
		loc:     loc,
		metrics: metrics,
		log:     logger.With().Str("component", "notification_scheduler").Logger(),
	}
}

// ScheduleForAppointment requests the confirmation now plus the 24h and 2h
// reminders that are still in the future.
func (s *Scheduler) ScheduleForAppointment(ctx context.Context, appointmentID uuid.UUID, start time.Time) error {
	now := s.clock.Now()

	var errs []error
	if _, err := s.CreateNotification(ctx, appointmentID, TypeConfirmation, nil); err != nil {
		errs = append(errs, err)
	}

	reminders := []struct {
		t    Type
		lead time.Duration
	}{
		{TypeReminder24h, reminder24hLead},
		{TypeReminder2h, reminder2hLead},
	}
	for _, r := range reminders {
		at := start.Add(-r.lead)
		if !at.After(now) {
			continue
		}
		if _, err := s.CreateNotification(ctx, appointmentID, r.t, &at); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Reschedule retires notifications still programmed for the old start,
// whose bodies carry the old date, and schedules a fresh set.
func (s *Scheduler) Reschedule(ctx context.Context, appointmentID uuid.UUID, start time.Time) error {
	n, err := s.repo.SupersedeProgrammed(ctx, appointmentID)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("appointment_id", appointmentID.String()).
		Int("superseded", n).
		Time("start_at", start).
		Msg("rescheduling notifications")

	return s.ScheduleForAppointment(ctx, appointmentID, start)
}

func (s *Scheduler) NotifyCancellation(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := s.CreateNotification(ctx, appointmentID, TypeCancellation, nil)
	return err
}

// CreateNotification builds one notification per enabled channel with an
// active template and a known recipient.
//
// A future scheduledFor stores the row as PROGRAMMED. Otherwise the message
// goes out now if the local time is inside the configured send window, and
// is PROGRAMMED for the next window start if not. Only storage errors are
// returned.
func (s *Scheduler) CreateNotification(ctx context.Context, appointmentID uuid.UUID, t Type, scheduledFor *time.Time) ([]Notification, error) {
	log := s.log.With().Str("appointment_id", appointmentID.String()).Str("type", string(t)).Logger()

	cfg, err := s.repo.FindConfig(ctx, t)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			log.Info().Msg("no notification config, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("load notification config: %w", err)
	}

	channels := cfg.EnabledChannels()
	if len(channels) == 0 {
		log.Debug().Msg("no channels enabled, skipping")
		return nil, nil
	}

	data, err := s.repo.LoadAppointmentData(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	rc := data.Render
	rc.StartAt = rc.StartAt.In(s.loc)

	var created []Notification
	for _, ch := range channels {
		chLog := log.With().Str("channel", string(ch)).Logger()

		tpl, err := s.repo.FindActiveTemplate(ctx, t, ch)
		if err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				chLog.Info().Msg("no active template, skipping channel")
				continue
			}
			return created, fmt.Errorf("load template: %w", err)
		}

		recipient := recipientFor(ch, data)
		if recipient == "" {
			chLog.Info().Msg("patient has no address for channel, skipping")
			continue
		}

		rendered := Render(*tpl, rc)
		n := Notification{
			AppointmentID: data.AppointmentID,
			PatientID:     data.PatientID,
			Type:          t,
			Channel:       ch,
			Recipient:     recipient,
			Subject:       rendered.Subject,
			Body:          rendered.Body,
		}

		out, err := s.place(ctx, n, *cfg, scheduledFor, chLog)
		if err != nil {
			return created, err
		}
		created = append(created, *out)
	}

	return created, nil
}

func (s *Scheduler) place(ctx context.Context, n Notification, cfg Config, scheduledFor *time.Time, log zerolog.Logger) (*Notification, error) {
	now := s.clock.Now()

	if scheduledFor != nil && scheduledFor.After(now) {
		return s.program(ctx, n, *scheduledFor, log)
	}

	local := now.In(s.loc)
	if !withinWindow(local, cfg.WindowStart, cfg.WindowEnd) {
		next, err := nextWindowStart(local, cfg.WindowStart)
		if err != nil {
			return nil, fmt.Errorf("invalid send window start %q: %w", cfg.WindowStart, err)
		}
		log.Info().Time("deferred_to", next).Msg("outside send window, deferring")
		return s.program(ctx, n, next, log)
	}

	n.Status = StatusPending
	row, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.metrics.ObserveCreated(row.Type, row.Channel, row.Status)

	_ = sendNow(ctx, s.repo, s.senders, s.clock, s.metrics, row, log)
	return row, nil
}

func (s *Scheduler) program(ctx context.Context, n Notification, at time.Time, log zerolog.Logger) (*Notification, error) {
	n.Status = StatusProgrammed
	n.ScheduledFor = &at

	row, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.metrics.ObserveCreated(row.Type, row.Channel, row.Status)
	log.Debug().Str("notification_id", row.ID.String()).Time("scheduled_for", at).Msg("notification programmed")
	return row, nil
}

// sendNow delivers n and records the outcome, updating n in place.
// Recording failures are logged; the row is then reclaimed as stale.
func sendNow(ctx context.Context, repo Repository, senders Senders, clk clock.Clock, metrics *Metrics, n *Notification, log zerolog.Logger) error {
	messageID, sendErr := senders.deliver(ctx, *n)
	metrics.ObserveDelivery(n.Channel, sendErr)
	n.Attempts++

	if sendErr != nil {
		reason := sendErr.Error()
		n.Status = StatusFailed
		n.LastError = &reason
		log.Warn().Err(sendErr).Str("notification_id", n.ID.String()).Int("attempts", n.Attempts).Msg("notification send failed")

		if err := repo.MarkFailed(ctx, n.ID, reason); err != nil {
			log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to record send failure")
			return err
		}
		return sendErr
	}

	sentAt := clk.Now()
	var metadata map[string]string
	if messageID != "" {
		metadata = map[string]string{"message_id": messageID}
	}
	n.Status = StatusSent
	n.SentAt = &sentAt
	n.LastError = nil
	n.Metadata = metadata
	log.Info().Str("notification_id", n.ID.String()).Msg("notification sent")

	if err := repo.MarkSent(ctx, n.ID, sentAt, metadata); err != nil {
		log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to record send success")
		return err
	}
	return nil
}

func recipientFor(ch Channel, d *AppointmentData) string {
	var v *string
	switch ch {
	case ChannelEmail:
		v = d.PatientEmail
	case ChannelWhatsApp, ChannelSMS:
		v = d.PatientPhone
	}
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
