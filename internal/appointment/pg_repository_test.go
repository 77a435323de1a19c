package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentCols = []string{
	"id", "patient_id", "professional_id", "start_at", "end_at", "duration_minutes", "status",
	"insurer_id", "reason", "notes", "cancellation_reason", "cancelled_by", "cancelled_at",
	"created_by", "created_at", "updated_at",
}

func appointmentRow(a Appointment) []any {
	return []any{
		a.ID, a.PatientID, a.ProfessionalID, a.StartAt, a.EndAt, a.DurationMinutes, a.Status,
		a.InsurerID, a.Reason, a.Notes, a.CancellationReason, a.CancelledBy, a.CancelledAt,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	}
}

func TestPgRepository_FindOverlapping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	profID := uuid.New()
	start := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	existing := Appointment{
		ID: uuid.New(), PatientID: uuid.New(), ProfessionalID: profID,
		StartAt: start.Add(-15 * time.Minute), EndAt: start.Add(15 * time.Minute),
		DurationMinutes: 30, Status: StatusConfirmed, CreatedAt: start, UpdatedAt: start,
	}

	mock.ExpectQuery("FROM appointments").
		WithArgs(profID, start, end, cancelledStatuses, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(appointmentCols).AddRow(appointmentRow(existing)...))

	repo := NewPgRepository(mock)
	got, err := repo.FindOverlapping(context.Background(), profID, start, end, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, existing.ID, got[0].ID)
	assert.Equal(t, StatusConfirmed, got[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_CreateExclusionViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Now().Add(time.Hour)
	a := Appointment{
		PatientID: uuid.New(), ProfessionalID: uuid.New(),
		StartAt: start, EndAt: start.Add(30 * time.Minute), DurationMinutes: 30, Status: StatusPending,
	}

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), a.PatientID, a.ProfessionalID, a.StartAt, a.EndAt, a.DurationMinutes, a.Status,
			a.InsurerID, a.Reason, a.Notes, a.CreatedBy).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: noOverlapConstraint})

	repo := NewPgRepository(mock)
	_, err = repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_CancelIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	at := time.Now()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelledByPatient, StatusPending, "viaje", pgxmock.AnyArg(), at).
		WillReturnError(pgx.ErrNoRows)

	repo := NewPgRepository(mock)
	_, err = repo.Cancel(context.Background(), id, StatusPending, StatusCancelledByPatient, "viaje", nil, at)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_FindBookedIntervals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	profID := uuid.New()
	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	s := from.Add(10 * time.Hour)

	mock.ExpectQuery("SELECT start_at, end_at").
		WithArgs(profID, from, to, cancelledStatuses).
		WillReturnRows(pgxmock.NewRows([]string{"start_at", "end_at"}).AddRow(s, s.Add(45*time.Minute)))

	repo := NewPgRepository(mock)
	got, err := repo.FindBookedIntervals(context.Background(), profID, from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.Add(45*time.Minute), got[0].End)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_InsertEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentCreated, &id, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPgRepository(mock)
	err = repo.InsertEvent(context.Background(), EventLog{EventType: EventAppointmentCreated, AppointmentID: &id, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
