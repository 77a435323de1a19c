package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrProfessionalNotFound = apperr.NotFound("professional_not_found", "professional not found")
	ErrScheduleNotFound     = apperr.NotFound("schedule_not_found", "schedule not found")
)

// Repository is the storage surface for professionals and their weekly windows.
type Repository interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error)
	ListProfessionals(ctx context.Context, f ProfessionalFilter) ([]Professional, error)
	CreateProfessional(ctx context.Context, p Professional) (*Professional, error)
	UpdateProfessional(ctx context.Context, p Professional) (*Professional, error)
	SetProfessionalActive(ctx context.Context, id uuid.UUID, active bool) (*Professional, error)

	FindActiveSchedules(ctx context.Context, professionalID uuid.UUID, day time.Weekday) ([]WeeklySchedule, error)
	ListSchedules(ctx context.Context, professionalID uuid.UUID) ([]WeeklySchedule, error)
	CreateSchedule(ctx context.Context, ws WeeklySchedule) (*WeeklySchedule, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error)
}

// BookingSource supplies the intervals already held by non-cancelled
// appointments of a professional.
type BookingSource interface {
	FindBookedIntervals(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Interval, error)
}
