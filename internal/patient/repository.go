package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrPatientNotFound = apperr.NotFound("patient_not_found", "patient not found")
	ErrInsurerNotFound = apperr.NotFound("insurer_not_found", "insurer not found")
	ErrInsurerExists   = apperr.Conflict("insurer_exists", "an insurer with this name already exists")
)

type Repository interface {
	ListInsurers(ctx context.Context) ([]Insurer, error)
	GetInsurer(ctx context.Context, id uuid.UUID) (*Insurer, error)
	// CreateInsurer returns ErrInsurerExists on a duplicate name.
	CreateInsurer(ctx context.Context, in Insurer) (*Insurer, error)

	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, f ListFilter) ([]Patient, int, error)
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)
	UpdatePatient(ctx context.Context, p Patient) (*Patient, error)
	SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error)
}
