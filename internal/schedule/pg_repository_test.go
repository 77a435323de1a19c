package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleCols = []string{"id", "professional_id", "day_of_week", "start_time", "end_time", "active", "created_at", "updated_at"}

func TestPgRepository_FindActiveSchedules(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	profID := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows(scheduleCols).
		AddRow(uuid.New(), profID, int16(1), "09:00", "13:00", true, now, now).
		AddRow(uuid.New(), profID, int16(1), "14:00", "18:00", true, now, now)

	mock.ExpectQuery("FROM weekly_schedules").
		WithArgs(profID, int16(time.Monday)).
		WillReturnRows(rows)

	repo := NewPgRepository(mock)
	got, err := repo.FindActiveSchedules(context.Background(), profID, time.Monday)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Monday, got[0].DayOfWeek)
	assert.Equal(t, "13:00", got[0].End.String())
	assert.Equal(t, "14:00", got[1].Start.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_GetProfessionalNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM professionals").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	repo := NewPgRepository(mock)
	_, err = repo.GetProfessional(context.Background(), id)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_CreateSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, profID := uuid.New(), uuid.New()
	now := time.Now()
	start, _ := ParseTimeOfDay("08:30")
	end, _ := ParseTimeOfDay("12:00")

	mock.ExpectQuery("INSERT INTO weekly_schedules").
		WithArgs(id, profID, int16(time.Friday), "08:30", "12:00").
		WillReturnRows(pgxmock.NewRows(scheduleCols).AddRow(id, profID, int16(5), "08:30", "12:00", true, now, now))

	repo := NewPgRepository(mock)
	got, err := repo.CreateSchedule(context.Background(), WeeklySchedule{
		ID: id, ProfessionalID: profID, DayOfWeek: time.Friday, Start: start, End: end,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, time.Friday, got.DayOfWeek)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_DeactivateScheduleNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE weekly_schedules").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	repo := NewPgRepository(mock)
	_, err = repo.DeactivateSchedule(context.Background(), id)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var professionalCols = []string{"id", "first_name", "last_name", "specialty", "slot_duration_minutes", "active", "created_at", "updated_at"}

func TestPgRepository_ListProfessionals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("FROM professionals").
		WithArgs(false, "Cardiología").
		WillReturnRows(pgxmock.NewRows(professionalCols).
			AddRow(uuid.New(), "Laura", "Díaz", "Cardiología", 45, true, now, now))

	repo := NewPgRepository(mock)
	got, err := repo.ListProfessionals(context.Background(), ProfessionalFilter{Specialty: "Cardiología"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 45, got[0].SlotDurationMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_CreateAndUpdateProfessional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO professionals").
		WithArgs(id, "Laura", "Díaz", "Cardiología", 30).
		WillReturnRows(pgxmock.NewRows(professionalCols).AddRow(id, "Laura", "Díaz", "Cardiología", 30, true, now, now))
	mock.ExpectQuery("UPDATE professionals").
		WithArgs(id, "Laura", "Díaz", "Cardiología", 45).
		WillReturnRows(pgxmock.NewRows(professionalCols).AddRow(id, "Laura", "Díaz", "Cardiología", 45, true, now, now))

	repo := NewPgRepository(mock)
	p := Professional{ID: id, FirstName: "Laura", LastName: "Díaz", Specialty: "Cardiología", SlotDurationMinutes: 30}
	created, err := repo.CreateProfessional(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created.Active)

	p.SlotDurationMinutes = 45
	updated, err := repo.UpdateProfessional(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 45, updated.SlotDurationMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SetProfessionalActiveNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE professionals").WithArgs(id, false).WillReturnError(pgx.ErrNoRows)

	repo := NewPgRepository(mock)
	_, err = repo.SetProfessionalActive(context.Background(), id, false)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
