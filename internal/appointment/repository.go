package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrPatientNotFound     = apperr.NotFound("patient_not_found", "patient not found")
	ErrAppointmentNotFound = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrSlotTaken           = apperr.Conflict("slot_taken", "slot already taken")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindOverlapping returns non-cancelled appointments of the professional
	// intersecting [start, end). excludeID, when set, is left out.
	FindOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error)

	// Create inserts a new appointment. An overlapping insert that slips past
	// FindOverlapping fails with ErrSlotTaken.
	Create(ctx context.Context, a Appointment) (*Appointment, error)

	// Conditional writes: each succeeds only if the row is still in status
	// from, otherwise ErrAppointmentNotFound.
	Cancel(ctx context.Context, id uuid.UUID, from, to Status, reason string, actorID *uuid.UUID, at time.Time) (*Appointment, error)
	Update(ctx context.Context, a Appointment, from Status) (*Appointment, error)

	ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
