package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clock"
)

var (
	ErrInvalidDayOfWeek = apperr.Validation("invalid_day_of_week", "day of week must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidWindow    = apperr.Validation("invalid_schedule_window", "schedule start must be before end")
	ErrWindowOverlap    = apperr.Conflict("schedule_overlap", "schedule overlaps an existing active window")
)

type Service struct {
	repo     Repository
	bookings BookingSource
	clock    clock.Clock
	loc      *time.Location
	log      zerolog.Logger
}

func NewService(repo Repository, bookings BookingSource, clk clock.Clock, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:     repo,
		bookings: bookings,
		clock:    clk,
		loc:      loc,
		log:      logger.With().Str("component", "schedule").Logger(),
	}
}

// Location is the clinic time zone every wall-clock value is interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// GetProfessional returns an active professional or ErrProfessionalNotFound.
func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	p, err := s.repo.GetProfessional(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}
	if !p.Active {
		return nil, ErrProfessionalNotFound
	}
	return p, nil
}

// GetAvailability computes the free slots of a professional on the calendar
// day of date. Slots already in the past are not offered.
func (s *Service) GetAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) (*Availability, error) {
	p, err := s.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	windows, err := s.repo.FindActiveSchedules(ctx, p.ID, dayStart.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	in := AvailabilityInput{
		ProfessionalID: p.ID,
		Date:           dayStart,
		SlotDuration:   p.SlotDuration(),
		Windows:        windows,
		NotBefore:      s.clock.Now(),
	}

	if len(windows) > 0 {
		booked, err := s.bookings.FindBookedIntervals(ctx, p.ID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("load booked intervals: %w", err)
		}
		in.Booked = booked
	}

	result := Calculate(in)
	return &result, nil
}

type CreateScheduleRequest struct {
	ProfessionalID uuid.UUID
	DayOfWeek      int
	Start          string
	End            string
}

// CreateSchedule adds a weekly window. Windows of the same day must not
// overlap; abutting windows are fine.
func (s *Service) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*WeeklySchedule, error) {
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, ErrInvalidDayOfWeek
	}

	start, err := ParseTimeOfDay(req.Start)
	if err != nil {
		return nil, apperr.Validationf("invalid_time", "invalid start time %q, expected HH:MM", req.Start)
	}
	end, err := ParseTimeOfDay(req.End)
	if err != nil {
		return nil, apperr.Validationf("invalid_time", "invalid end time %q, expected HH:MM", req.End)
	}
	if start >= end {
		return nil, ErrInvalidWindow
	}

	if _, err := s.repo.GetProfessional(ctx, req.ProfessionalID); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	day := time.Weekday(req.DayOfWeek)
	existing, err := s.repo.FindActiveSchedules(ctx, req.ProfessionalID, day)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	for _, w := range existing {
		if start < w.End && w.Start < end {
			return nil, ErrWindowOverlap
		}
	}

	created, err := s.repo.CreateSchedule(ctx, WeeklySchedule{
		ProfessionalID: req.ProfessionalID,
		DayOfWeek:      day,
		Start:          start,
		End:            end,
		Active:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.log.Info().
		Str("schedule_id", created.ID.String()).
		Str("professional_id", created.ProfessionalID.String()).
		Int("day_of_week", int(created.DayOfWeek)).
		Str("start", created.Start.String()).
		Str("end", created.End.String()).
		Msg("schedule created")

	return created, nil
}

// DeactivateSchedule soft-deletes a window.
func (s *Service) DeactivateSchedule(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	ws, err := s.repo.DeactivateSchedule(ctx, id)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("deactivate schedule: %w", err)
	}
	s.log.Info().Str("schedule_id", id.String()).Msg("schedule deactivated")
	return ws, nil
}

func (s *Service) ListSchedules(ctx context.Context, professionalID uuid.UUID) ([]WeeklySchedule, error) {
	if _, err := s.repo.GetProfessional(ctx, professionalID); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	list, err := s.repo.ListSchedules(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if list == nil {
		list = []WeeklySchedule{}
	}
	return list, nil
}
