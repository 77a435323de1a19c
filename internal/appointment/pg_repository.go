package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const noOverlapConstraint = "appointments_no_overlap"

const appointmentColumns = `id, patient_id, professional_id, start_at, end_at, duration_minutes, status,
	insurer_id, reason, notes, cancellation_reason, cancelled_by, cancelled_at,
	created_by, created_at, updated_at`

// cancelledStatuses is bound as $n in queries that skip cancelled rows.
var cancelledStatuses = []string{string(StatusCancelledByPatient), string(StatusCancelledByProfessional)}

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

var _ Repository = (*PgRepository)(nil)
var _ schedule.BookingSource = (*PgRepository)(nil)

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.InsurerID,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.StartAt,
		&a.EndAt,
		&a.DurationMinutes,
		&a.Status,
		&a.InsurerID,
		&a.Reason,
		&a.Notes,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, insurer_id, active, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND start_at < $3
		  AND end_at > $2
		  AND status <> ALL($4)
		  AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY start_at
	`, professionalID, start, end, cancelledStatuses, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query overlapping appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindBookedIntervals(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_at, end_at
		FROM appointments
		WHERE professional_id = $1
		  AND start_at < $3
		  AND end_at > $2
		  AND status <> ALL($4)
		ORDER BY start_at
	`, professionalID, from, to, cancelledStatuses)
	if err != nil {
		return nil, fmt.Errorf("query booked intervals: %w", err)
	}
	defer rows.Close()

	var result []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, professional_id, start_at, end_at, duration_minutes, status,
		                          insurer_id, reason, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.ProfessionalID, a.StartAt, a.EndAt, a.DurationMinutes, a.Status,
		a.InsurerID, a.Reason, a.Notes, a.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		if db.IsExclusionViolation(err, noOverlapConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, from, to Status, reason string, actorID *uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancellation_reason = $4,
		    cancelled_by = $5,
		    cancelled_at = $6,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, to, from, reason, actorID, at)

	return scanAppointment(row)
}

func (r *PgRepository) Update(ctx context.Context, a Appointment, from Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $2,
		    end_at = $3,
		    duration_minutes = $4,
		    status = $5,
		    reason = $6,
		    notes = $7,
		    updated_at = now()
		WHERE id = $1
		  AND status = $8
		RETURNING `+appointmentColumns,
		a.ID, a.StartAt, a.EndAt, a.DurationMinutes, a.Status, a.Reason, a.Notes, from)

	updated, err := scanAppointment(row)
	if err != nil {
		if db.IsExclusionViolation(err, noOverlapConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at
	`, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments by professional: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
