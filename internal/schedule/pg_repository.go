package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

const professionalColumns = `id, first_name, last_name, specialty, slot_duration_minutes, active, created_at, updated_at`

const scheduleColumns = `id, professional_id, day_of_week, start_time, end_time, active, created_at, updated_at`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Specialty,
		&p.SlotDurationMinutes,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanSchedule(row pgx.Row) (*WeeklySchedule, error) {
	var (
		ws         WeeklySchedule
		day        int16
		start, end string
	)

	err := row.Scan(
		&ws.ID,
		&ws.ProfessionalID,
		&day,
		&start,
		&end,
		&ws.Active,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	ws.DayOfWeek = time.Weekday(day)
	if ws.Start, err = ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if ws.End, err = ParseTimeOfDay(end); err != nil {
		return nil, err
	}

	return &ws, nil
}

func collectSchedules(rows pgx.Rows) ([]WeeklySchedule, error) {
	defer rows.Close()

	var result []WeeklySchedule
	for rows.Next() {
		ws, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ws)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

func (r *PgRepository) ListProfessionals(ctx context.Context, f ProfessionalFilter) ([]Professional, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE ($1 OR active)
		  AND ($2 = '' OR lower(specialty) = lower($2))
		ORDER BY last_name, first_name
	`, f.IncludeInactive, f.Specialty)
	if err != nil {
		return nil, fmt.Errorf("query professionals: %w", err)
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateProfessional(ctx context.Context, p Professional) (*Professional, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO professionals (id, first_name, last_name, specialty, slot_duration_minutes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		RETURNING `+professionalColumns,
		p.ID, p.FirstName, p.LastName, p.Specialty, p.SlotDurationMinutes)

	return scanProfessional(row)
}

func (r *PgRepository) UpdateProfessional(ctx context.Context, p Professional) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE professionals
		SET first_name = $2,
		    last_name = $3,
		    specialty = $4,
		    slot_duration_minutes = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+professionalColumns,
		p.ID, p.FirstName, p.LastName, p.Specialty, p.SlotDurationMinutes)

	return scanProfessional(row)
}

func (r *PgRepository) SetProfessionalActive(ctx context.Context, id uuid.UUID, active bool) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE professionals
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+professionalColumns, id, active)

	return scanProfessional(row)
}

func (r *PgRepository) FindActiveSchedules(ctx context.Context, professionalID uuid.UUID, day time.Weekday) ([]WeeklySchedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE professional_id = $1
		  AND day_of_week = $2
		  AND active
		ORDER BY start_time
	`, professionalID, int16(day))
	if err != nil {
		return nil, fmt.Errorf("query active schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *PgRepository) ListSchedules(ctx context.Context, professionalID uuid.UUID) ([]WeeklySchedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE professional_id = $1
		ORDER BY day_of_week, start_time
	`, professionalID)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *PgRepository) CreateSchedule(ctx context.Context, ws WeeklySchedule) (*WeeklySchedule, error) {
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO weekly_schedules (id, professional_id, day_of_week, start_time, end_time, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		RETURNING `+scheduleColumns,
		ws.ID, ws.ProfessionalID, int16(ws.DayOfWeek), ws.Start.String(), ws.End.String())

	return scanSchedule(row)
}

func (r *PgRepository) DeactivateSchedule(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE weekly_schedules
		SET active = FALSE,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+scheduleColumns, id)

	return scanSchedule(row)
}
