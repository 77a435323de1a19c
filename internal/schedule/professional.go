package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

const (
	minSlotDurationMinutes = 5
	maxSlotDurationMinutes = 240
)

var (
	ErrProfessionalNameRequired = apperr.Validation("professional_name_required", "first and last name are required")
	ErrSpecialtyRequired        = apperr.Validation("specialty_required", "specialty is required")
	ErrInvalidSlotDuration      = apperr.Validationf("invalid_slot_duration",
		"slot duration must be between %d and %d minutes", minSlotDurationMinutes, maxSlotDurationMinutes)
)

type ProfessionalRequest struct {
	FirstName string
	LastName  string
	Specialty string
	// SlotDurationMinutes uses the clinic default when zero.
	SlotDurationMinutes int
}

// ProfessionalUpdate carries the fields to change; nil leaves a field as is.
type ProfessionalUpdate struct {
	FirstName           *string
	LastName            *string
	Specialty           *string
	SlotDurationMinutes *int
	Active              *bool
}

func (s *Service) ListProfessionals(ctx context.Context, f ProfessionalFilter) ([]Professional, error) {
	f.Specialty = strings.TrimSpace(f.Specialty)
	list, err := s.repo.ListProfessionals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	if list == nil {
		list = []Professional{}
	}
	return list, nil
}

func (s *Service) CreateProfessional(ctx context.Context, req ProfessionalRequest) (*Professional, error) {
	p := Professional{
		FirstName:           strings.TrimSpace(req.FirstName),
		LastName:            strings.TrimSpace(req.LastName),
		Specialty:           strings.TrimSpace(req.Specialty),
		SlotDurationMinutes: req.SlotDurationMinutes,
	}
	if p.SlotDurationMinutes == 0 {
		p.SlotDurationMinutes = DefaultSlotDurationMinutes
	}
	if err := validateProfessional(p); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProfessional(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create professional: %w", err)
	}

	s.log.Info().
		Str("professional_id", created.ID.String()).
		Str("specialty", created.Specialty).
		Int("slot_duration_minutes", created.SlotDurationMinutes).
		Msg("professional created")

	return created, nil
}

// UpdateProfessional edits a professional record. Inactive professionals
// can be edited and reactivated through Active.
func (s *Service) UpdateProfessional(ctx context.Context, id uuid.UUID, req ProfessionalUpdate) (*Professional, error) {
	current, err := s.repo.GetProfessional(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	next := *current
	if req.FirstName != nil {
		next.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		next.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Specialty != nil {
		next.Specialty = strings.TrimSpace(*req.Specialty)
	}
	if req.SlotDurationMinutes != nil {
		next.SlotDurationMinutes = *req.SlotDurationMinutes
	}
	if err := validateProfessional(next); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProfessional(ctx, next)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update professional: %w", err)
	}

	if req.Active != nil && *req.Active != updated.Active {
		return s.setActive(ctx, id, *req.Active)
	}
	return updated, nil
}

// DeactivateProfessional hides a professional from availability and
// booking. Existing appointments are left untouched.
func (s *Service) DeactivateProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*Professional, error) {
	p, err := s.repo.SetProfessionalActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set professional active: %w", err)
	}
	s.log.Info().Str("professional_id", id.String()).Bool("active", active).Msg("professional status changed")
	return p, nil
}

func validateProfessional(p Professional) error {
	switch {
	case p.FirstName == "" || p.LastName == "":
		return ErrProfessionalNameRequired
	case p.Specialty == "":
		return ErrSpecialtyRequired
	case p.SlotDurationMinutes < minSlotDurationMinutes || p.SlotDurationMinutes > maxSlotDurationMinutes:
		return ErrInvalidSlotDuration
	}
	return nil
}
