package patient

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/channels"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var (
	ErrNameRequired        = apperr.Validation("patient_name_required", "first and last name are required")
	ErrInvalidEmail        = apperr.Validation("invalid_email", "email address is not valid")
	ErrInvalidPhone        = apperr.Validation("invalid_phone", "phone number is not valid")
	ErrInsurerNameRequired = apperr.Validation("insurer_name_required", "insurer name is required")
)

type Service struct {
	repo        Repository
	countryCode string
	log         zerolog.Logger
}

// NewService builds the patient registry. countryCode is prefixed to phone
// numbers entered without "+".
func NewService(repo Repository, countryCode string, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		countryCode: countryCode,
		log:         logger.With().Str("component", "patient").Logger(),
	}
}

type CreateRequest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	InsurerID *uuid.UUID
}

// UpdateRequest carries the fields to change; nil leaves a field as is.
// An empty Email or Phone clears it, and uuid.Nil clears the insurer.
type UpdateRequest struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	InsurerID *uuid.UUID
	Active    *bool
}

func (s *Service) ListInsurers(ctx context.Context) ([]Insurer, error) {
	list, err := s.repo.ListInsurers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list insurers: %w", err)
	}
	if list == nil {
		list = []Insurer{}
	}
	return list, nil
}

func (s *Service) CreateInsurer(ctx context.Context, name string) (*Insurer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInsurerNameRequired
	}

	in, err := s.repo.CreateInsurer(ctx, Insurer{Name: name})
	if err != nil {
		if errors.Is(err, ErrInsurerExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create insurer: %w", err)
	}

	s.log.Info().Str("insurer_id", in.ID.String()).Str("name", in.Name).Msg("insurer created")
	return in, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, f ListFilter) (*Page, error) {
	f.Query = strings.TrimSpace(f.Query)
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, total, err := s.repo.ListPatients(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	if items == nil {
		items = []Patient{}
	}
	return &Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *Service) CreatePatient(ctx context.Context, req CreateRequest) (*Patient, error) {
	p := Patient{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		InsurerID: req.InsurerID,
	}
	if p.InsurerID != nil && *p.InsurerID == uuid.Nil {
		p.InsurerID = nil
	}

	var err error
	if p.Email, err = normalizeEmail(req.Email); err != nil {
		return nil, err
	}
	if p.Phone, err = s.normalizePhone(req.Phone); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	created, err := s.repo.CreatePatient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	s.log.Info().
		Str("patient_id", created.ID.String()).
		Bool("has_email", created.Email != nil).
		Bool("has_phone", created.Phone != nil).
		Msg("patient created")

	return created, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	current, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.FirstName != nil {
		next.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		next.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		if next.Email, err = normalizeEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil {
		if next.Phone, err = s.normalizePhone(*req.Phone); err != nil {
			return nil, err
		}
	}
	if req.InsurerID != nil {
		next.InsurerID = req.InsurerID
		if *req.InsurerID == uuid.Nil {
			next.InsurerID = nil
		}
	}
	if err := s.validate(ctx, next); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdatePatient(ctx, next)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}

	if req.Active != nil && *req.Active != updated.Active {
		return s.setActive(ctx, id, *req.Active)
	}
	return updated, nil
}

// DeactivatePatient blocks new bookings for the patient. Their history and
// pending appointments stay as they are.
func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	p, err := s.repo.SetPatientActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set patient active: %w", err)
	}
	s.log.Info().Str("patient_id", id.String()).Bool("active", active).Msg("patient status changed")
	return p, nil
}

func (s *Service) validate(ctx context.Context, p Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return ErrNameRequired
	}
	if p.InsurerID == nil {
		return nil
	}
	if _, err := s.repo.GetInsurer(ctx, *p.InsurerID); err != nil {
		if errors.Is(err, ErrInsurerNotFound) {
			return err
		}
		return fmt.Errorf("load insurer: %w", err)
	}
	return nil
}

func (s *Service) normalizePhone(raw string) (*string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if !channels.ValidPhone(raw, s.countryCode) {
		return nil, ErrInvalidPhone
	}
	n := channels.NormalizePhone(raw, s.countryCode)
	return &n, nil
}

func normalizeEmail(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return nil, ErrInvalidEmail
	}
	e := strings.ToLower(addr.Address)
	return &e, nil
}
