package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const (
	patientColumns        = `id, first_name, last_name, email, phone, insurer_id, active, created_at, updated_at`
	insurerColumns        = `id, name, created_at`
	insurerNameConstraint = "insurers_name_key"
)

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

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

func scanInsurer(row pgx.Row) (*Insurer, error) {
	var in Insurer
	if err := row.Scan(&in.ID, &in.Name, &in.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsurerNotFound
		}
		return nil, err
	}
	return &in, nil
}

func (r *PgRepository) ListInsurers(ctx context.Context) ([]Insurer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+insurerColumns+`
		FROM insurers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query insurers: %w", err)
	}
	defer rows.Close()

	var result []Insurer
	for rows.Next() {
		in, err := scanInsurer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *in)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetInsurer(ctx context.Context, id uuid.UUID) (*Insurer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+insurerColumns+`
		FROM insurers
		WHERE id = $1
	`, id)
	return scanInsurer(row)
}

func (r *PgRepository) CreateInsurer(ctx context.Context, in Insurer) (*Insurer, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO insurers (id, name, created_at)
		VALUES ($1, $2, now())
		RETURNING `+insurerColumns, in.ID, in.Name)

	created, err := scanInsurer(row)
	if err != nil {
		if db.IsUniqueViolation(err, insurerNameConstraint) {
			return nil, ErrInsurerExists
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, f ListFilter) ([]Patient, int, error) {
	const filter = `
		WHERE ($1 OR active)
		  AND ($2 = '' OR (first_name || ' ' || last_name) ILIKE '%' || $2 || '%'
		       OR email ILIKE '%' || $2 || '%'
		       OR phone LIKE '%' || $2 || '%')`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM patients`+filter, f.IncludeInactive, f.Query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients`+filter+`
		ORDER BY last_name, first_name, id
		LIMIT $3 OFFSET $4
	`, f.IncludeInactive, f.Query, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, insurer_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
		RETURNING `+patientColumns,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.InsurerID)

	return scanPatient(row)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    phone = $5,
		    insurer_id = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.InsurerID)

	return scanPatient(row)
}

func (r *PgRepository) SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns, id, active)

	return scanPatient(row)
}
