package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clock"
	"github.com/hackgods/clinic-scheduling/internal/config"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentUpdated       = "APPOINTMENT_UPDATED"
)

var (
	ErrBookingInProgress       = apperr.Conflict("booking_in_progress", "another booking for this professional is in progress, please retry")
	ErrAlreadyCancelled        = apperr.Conflict("already_cancelled", "appointment is already cancelled")
	ErrInvalidStatusTransition = apperr.Conflict("invalid_status_transition", "invalid status transition")
	ErrConcurrentUpdate        = apperr.Conflict("concurrent_update", "appointment was modified concurrently, please retry")
	ErrStartInPast             = apperr.Validation("start_in_past", "appointment start must not be in the past")
	ErrCancelReasonRequired    = apperr.Validation("reason_required", "a cancellation reason is required")
	ErrUseCancel               = apperr.Validation("use_cancel", "cancelled statuses can only be set by cancelling")
	ErrInvalidStatus           = apperr.Validation("invalid_status", "unknown or disallowed appointment status")
	ErrStatusChangeStaffOnly   = apperr.Validation("status_change_staff_only", "only staff can change an appointment status")
)

// ProfessionalLookup resolves active professionals.
type ProfessionalLookup interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (*schedule.Professional, error)
}

// Notifier schedules patient notifications. Calls run off the request path
// and their errors never reach the caller of the booking operation.
type Notifier interface {
	ScheduleForAppointment(ctx context.Context, appointmentID uuid.UUID, start time.Time) error
	NotifyCancellation(ctx context.Context, appointmentID uuid.UUID) error
	Reschedule(ctx context.Context, appointmentID uuid.UUID, start time.Time) error
}

type Service struct {
	repo          Repository
	professionals ProfessionalLookup
	locker        redisclient.Locker
	notifier      Notifier
	clock         clock.Clock
	cfg           config.BookingConfig
	metrics       *Metrics
	log           zerolog.Logger

	inflight sync.WaitGroup
}

func NewService(
	repo Repository,
	professionals ProfessionalLookup,
	locker redisclient.Locker,
	notifier Notifier,
	clk clock.Clock,
	cfg config.BookingConfig,
	metrics *Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:          repo,
		professionals: professionals,
		locker:        locker,
		notifier:      notifier,
		clock:         clk,
		cfg:           cfg,
		metrics:       metrics,
		log:           logger.With().Str("component", "appointment").Logger(),
	}
}

type BookRequest struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	StartAt        time.Time
	// DurationMinutes falls back to the professional's slot duration when zero.
	DurationMinutes int
	// Status is optional; only PENDING or CONFIRMED are accepted.
	Status    Status
	InsurerID *uuid.UUID
	Reason    *string
	Notes     *string
	Actor     Actor
}

// Book creates an appointment if the interval is free for the professional.
// The overlap check and insert run under a per-professional lock, and the
// database exclusion constraint rejects anything that still races past it.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	started := time.Now()
	appt, err := s.book(ctx, req)
	s.metrics.ObserveBooking(err, time.Since(started).Seconds())
	return appt, err
}

func (s *Service) book(ctx context.Context, req BookRequest) (*Appointment, error) {
	prof, err := s.professionals.GetProfessional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = int(prof.SlotDuration() / time.Minute)
	}
	if err := s.validateDuration(duration); err != nil {
		return nil, err
	}
	if req.StartAt.Before(s.clock.Now()) {
		return nil, ErrStartInPast
	}

	status, err := initialStatus(req)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatient(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if !patient.Active {
		return nil, ErrPatientNotFound
	}

	insurerID := req.InsurerID
	if insurerID == nil {
		insurerID = patient.InsurerID
	}

	candidate := Appointment{
		PatientID:       patient.ID,
		ProfessionalID:  prof.ID,
		StartAt:         req.StartAt,
		EndAt:           req.StartAt.Add(time.Duration(duration) * time.Minute),
		DurationMinutes: duration,
		Status:          status,
		InsurerID:       insurerID,
		Reason:          trimmed(req.Reason),
		Notes:           trimmed(req.Notes),
		CreatedBy:       actorID(req.Actor),
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, redisclient.ProfessionalKey(prof.ID), func(lockCtx context.Context) error {
		if err := s.ensureFree(lockCtx, candidate, nil); err != nil {
			return err
		}

		appt, err := s.repo.Create(lockCtx, candidate)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"patient_id":       appt.PatientID.String(),
			"professional_id":  appt.ProfessionalID.String(),
			"start_at":         appt.StartAt,
			"duration_minutes": appt.DurationMinutes,
			"status":           appt.Status,
			"actor_role":       req.Actor.Role,
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("professional_id", created.ProfessionalID.String()).
		Time("start_at", created.StartAt).
		Str("status", string(created.Status)).
		Msg("appointment booked")

	s.notifyAsync(ctx, created.ID, "schedule notifications", func(nctx context.Context) error {
		return s.notifier.ScheduleForAppointment(nctx, created.ID, created.StartAt)
	})

	return created, nil
}

// Cancel moves an open appointment to the cancelled status matching the
// actor's role. Cancellation is final.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrCancelReasonRequired
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Cancelled() {
		return nil, ErrAlreadyCancelled
	}
	if appt.Status.Closed() {
		return nil, ErrInvalidStatusTransition
	}

	to := StatusCancelledByProfessional
	if actor.Role == RolePatient {
		to = StatusCancelledByPatient
	}

	updated, err := s.repo.Cancel(ctx, appt.ID, appt.Status, to, reason, actorID(actor), s.clock.Now())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"from":       appt.Status,
		"to":         updated.Status,
		"reason":     reason,
		"actor_id":   actor.ID.String(),
		"actor_role": actor.Role,
	})
	s.metrics.ObserveCancellation(updated.Status)

	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("appointment cancelled")

	s.notifyAsync(ctx, updated.ID, "notify cancellation", func(nctx context.Context) error {
		return s.notifier.NotifyCancellation(nctx, updated.ID)
	})

	return updated, nil
}

type UpdateRequest struct {
	StartAt         *time.Time
	DurationMinutes *int
	Status          *Status
	Reason          *string
	Notes           *string
	Actor           Actor
}

func (r UpdateRequest) reschedules() bool {
	return r.StartAt != nil || r.DurationMinutes != nil
}

// Update edits an appointment. A time or duration change is checked for
// overlap against the professional's other appointments.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Reason != nil {
		next.Reason = trimmed(req.Reason)
	}
	if req.Notes != nil {
		next.Notes = trimmed(req.Notes)
	}

	if req.Status != nil && *req.Status != current.Status {
		target := *req.Status
		switch {
		case !req.Actor.Role.IsStaff():
			return nil, ErrStatusChangeStaffOnly
		case !target.Valid():
			return nil, ErrInvalidStatus
		case target.Cancelled():
			return nil, ErrUseCancel
		case !current.Status.CanTransitionTo(target):
			return nil, ErrInvalidStatusTransition
		}
		next.Status = target
	}

	if !req.reschedules() {
		return s.applyUpdate(ctx, *current, next, req.Actor)
	}

	if current.Status.Closed() {
		return nil, ErrInvalidStatusTransition
	}
	if req.StartAt != nil {
		next.StartAt = *req.StartAt
	}
	if req.DurationMinutes != nil {
		next.DurationMinutes = *req.DurationMinutes
	}
	if err := s.validateDuration(next.DurationMinutes); err != nil {
		return nil, err
	}
	if !next.StartAt.Equal(current.StartAt) && next.StartAt.Before(s.clock.Now()) {
		return nil, ErrStartInPast
	}
	next.EndAt = next.StartAt.Add(time.Duration(next.DurationMinutes) * time.Minute)

	var updated *Appointment
	err = s.locker.WithLock(ctx, redisclient.ProfessionalKey(current.ProfessionalID), func(lockCtx context.Context) error {
		if err := s.ensureFree(lockCtx, next, &current.ID); err != nil {
			return err
		}
		updated, err = s.applyUpdate(lockCtx, *current, next, req.Actor)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	if !updated.Status.Cancelled() {
		s.notifyAsync(ctx, updated.ID, "reschedule notifications", func(nctx context.Context) error {
			return s.notifier.Reschedule(nctx, updated.ID, updated.StartAt)
		})
	}
	return updated, nil
}

func (s *Service) applyUpdate(ctx context.Context, current, next Appointment, actor Actor) (*Appointment, error) {
	updated, err := s.repo.Update(ctx, next, current.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			return nil, ErrConcurrentUpdate
		case errors.Is(err, ErrSlotTaken):
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	payload := map[string]any{"actor_id": actor.ID.String(), "actor_role": actor.Role}
	event := EventAppointmentUpdated
	switch {
	case !updated.StartAt.Equal(current.StartAt) || updated.DurationMinutes != current.DurationMinutes:
		event = EventAppointmentRescheduled
		payload["previous_start_at"] = current.StartAt
		payload["start_at"] = updated.StartAt
		payload["duration_minutes"] = updated.DurationMinutes
	case updated.Status != current.Status:
		event = EventAppointmentStatusChanged
		payload["from"] = current.Status
		payload["to"] = updated.Status
	}
	s.logEvent(ctx, updated.ID, event, payload)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListByProfessional returns the appointments starting on the calendar day of day.
func (s *Service) ListByProfessional(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]Appointment, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())

	list, err := s.repo.ListByProfessional(ctx, professionalID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments by professional: %w", err)
	}
	return orEmpty(list), nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return orEmpty(list), nil
}

// Drain blocks until in-flight notification side effects finish.
func (s *Service) Drain() {
	s.inflight.Wait()
}

func (s *Service) validateDuration(minutes int) error {
	if minutes < s.cfg.MinDurationMinutes || minutes > s.cfg.MaxDurationMinutes {
		return apperr.Validationf("invalid_duration", "duration must be between %d and %d minutes",
			s.cfg.MinDurationMinutes, s.cfg.MaxDurationMinutes)
	}
	return nil
}

func (s *Service) ensureFree(ctx context.Context, a Appointment, exclude *uuid.UUID) error {
	existing, err := s.repo.FindOverlapping(ctx, a.ProfessionalID, a.StartAt, a.EndAt, exclude)
	if err != nil {
		return fmt.Errorf("check overlapping appointments: %w", err)
	}
	if len(existing) > 0 {
		return ErrSlotTaken
	}
	return nil
}

func (s *Service) notifyAsync(ctx context.Context, appointmentID uuid.UUID, op string, fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}

	base := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("appointment_id", appointmentID.String()).Msg(op + " panicked")
			}
		}()

		nctx, cancel := context.WithTimeout(base, s.cfg.NotifyTimeout)
		defer cancel()

		if err := fn(nctx); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", appointmentID.String()).Msg(op + " failed")
		}
	}()
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func initialStatus(req BookRequest) (Status, error) {
	switch req.Status {
	case "":
		if req.Actor.Role.IsStaff() {
			return StatusConfirmed, nil
		}
		return StatusPending, nil
	case StatusPending, StatusConfirmed:
		return req.Status, nil
	default:
		return "", ErrInvalidStatus
	}
}

func actorID(a Actor) *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func orEmpty(list []Appointment) []Appointment {
	if list == nil {
		return []Appointment{}
	}
	return list
}
