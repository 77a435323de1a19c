package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending                 Status = "PENDING"
	StatusConfirmed               Status = "CONFIRMED"
	StatusInProgress              Status = "IN_PROGRESS"
	StatusCompleted               Status = "COMPLETED"
	StatusCancelledByPatient      Status = "CANCELLED_BY_PATIENT"
	StatusCancelledByProfessional Status = "CANCELLED_BY_PROFESSIONAL"
	StatusNoShow                  Status = "NO_SHOW"
)

// transitions lists the staff-driven status moves. Cancelled states are
// reached only through Cancel.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusCancelledByPatient, StatusCancelledByProfessional, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Cancelled() bool {
	return s == StatusCancelledByPatient || s == StatusCancelledByProfessional
}

// Closed reports whether no further change is possible.
func (s Status) Closed() bool {
	return s.Cancelled() || s == StatusCompleted || s == StatusNoShow
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Role string

const (
	RolePatient      Role = "PATIENT"
	RoleProfessional Role = "PROFESSIONAL"
	RoleReception    Role = "RECEPTION"
	RoleAdmin        Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RolePatient || r.IsStaff()
}

func (r Role) IsStaff() bool {
	return r == RoleProfessional || r == RoleReception || r == RoleAdmin
}

// Actor is who performs an operation. Authentication happens upstream.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	InsurerID *uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	ProfessionalID     uuid.UUID  `json:"professional_id"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              time.Time  `json:"end_at"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             Status     `json:"status"`
	InsurerID          *uuid.UUID `json:"insurer_id,omitempty"`
	Reason             *string    `json:"reason,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy          *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (a Appointment) Interval() schedule.Interval {
	return schedule.Interval{Start: a.StartAt, End: a.EndAt}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
