package api

import (
	"time"

	"github.com/google/uuid"
)

type BookAppointmentRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" validate:"required"`
	ProfessionalID  uuid.UUID  `json:"professional_id" validate:"required"`
	StartAt         time.Time  `json:"start_at" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,min=1"`
	Status          string     `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED"`
	InsurerID       *uuid.UUID `json:"insurer_id"`
	Reason          *string    `json:"reason" validate:"omitempty,max=500"`
	Notes           *string    `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateAppointmentRequest struct {
	StartAt         *time.Time `json:"start_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
	Status          *string    `json:"status" validate:"omitempty,appointment_status"`
	Reason          *string    `json:"reason" validate:"omitempty,max=500"`
	Notes           *string    `json:"notes" validate:"omitempty,max=2000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CreateScheduleRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	Start     string `json:"start" validate:"required,hhmm"`
	End       string `json:"end" validate:"required,hhmm"`
}

type CreateProfessionalRequest struct {
	FirstName           string `json:"first_name" validate:"required,max=100"`
	LastName            string `json:"last_name" validate:"required,max=100"`
	Specialty           string `json:"specialty" validate:"required,max=100"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"omitempty,min=5,max=240"`
}

type UpdateProfessionalRequest struct {
	FirstName           *string `json:"first_name" validate:"omitempty,max=100"`
	LastName            *string `json:"last_name" validate:"omitempty,max=100"`
	Specialty           *string `json:"specialty" validate:"omitempty,max=100"`
	SlotDurationMinutes *int    `json:"slot_duration_minutes" validate:"omitempty,min=5,max=240"`
	Active              *bool   `json:"active"`
}

type CreatePatientRequest struct {
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone" validate:"omitempty,max=30"`
	InsurerID *uuid.UUID `json:"insurer_id"`
}

// UpdatePatientRequest: an empty email, phone or insurer_id clears the
// field, so their formats are checked after decoding.
type UpdatePatientRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	InsurerID *string `json:"insurer_id"`
	Active    *bool   `json:"active"`
}

type CreateInsurerRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type UpsertNotificationConfigRequest struct {
	EmailEnabled    bool   `json:"email_enabled"`
	WhatsAppEnabled bool   `json:"whatsapp_enabled"`
	SMSEnabled      bool   `json:"sms_enabled"`
	SendWindowStart string `json:"send_window_start" validate:"required,hhmm"`
	SendWindowEnd   string `json:"send_window_end" validate:"required,hhmm"`
}

type CreateTemplateRequest struct {
	Type      string   `json:"type" validate:"required,oneof=CONFIRMATION REMINDER_24H REMINDER_2H CANCELLATION"`
	Channel   string   `json:"channel" validate:"required,oneof=EMAIL WHATSAPP SMS"`
	Subject   *string  `json:"subject" validate:"omitempty,max=200"`
	Body      string   `json:"body" validate:"required"`
	Active    *bool    `json:"active"`
	Variables []string `json:"variables"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  []ValidationError `json:"fields,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
