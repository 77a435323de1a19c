package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeConfirmation Type = "CONFIRMATION"
	TypeReminder24h  Type = "REMINDER_24H"
	TypeReminder2h   Type = "REMINDER_2H"
	TypeCancellation Type = "CANCELLATION"
)

var Types = []Type{TypeConfirmation, TypeReminder24h, TypeReminder2h, TypeCancellation}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelSMS      Channel = "SMS"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp || c == ChannelSMS
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProgrammed Status = "PROGRAMMED"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
	// StatusSuperseded marks a programmed row replaced after a reschedule.
	StatusSuperseded Status = "SUPERSEDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProgrammed, StatusSent, StatusFailed, StatusSuperseded:
		return true
	}
	return false
}

type Template struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	Channel   Channel   `json:"channel"`
	Subject   *string   `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Active    bool      `json:"active"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Config holds the per-type channel switches and the daily send window.
// WindowStart and WindowEnd are local "HH:MM" values.
type Config struct {
	Type            Type      `json:"type"`
	EmailEnabled    bool      `json:"email_enabled"`
	WhatsAppEnabled bool      `json:"whatsapp_enabled"`
	SMSEnabled      bool      `json:"sms_enabled"`
	WindowStart     string    `json:"send_window_start"`
	WindowEnd       string    `json:"send_window_end"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c Config) EnabledChannels() []Channel {
	var out []Channel
	if c.EmailEnabled {
		out = append(out, ChannelEmail)
	}
	if c.WhatsAppEnabled {
		out = append(out, ChannelWhatsApp)
	}
	if c.SMSEnabled {
		out = append(out, ChannelSMS)
	}
	return out
}

// Notification is one delivery attempt record. Rows are never deleted.
type Notification struct {
	ID            uuid.UUID         `json:"id"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	Type          Type              `json:"type"`
	Channel       Channel           `json:"channel"`
	Recipient     string            `json:"recipient"`
	Subject       *string           `json:"subject,omitempty"`
	Body          string            `json:"body"`
	ScheduledFor  *time.Time        `json:"scheduled_for,omitempty"`
	Status        Status            `json:"status"`
	Attempts      int               `json:"attempts"`
	LastError     *string           `json:"last_error,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AppointmentData is everything needed to render and address notifications
// for one appointment.
type AppointmentData struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	PatientEmail  *string
	PatientPhone  *string
	Render        RenderContext
}

type ListFilter struct {
	AppointmentID *uuid.UUID
	PatientID     *uuid.UUID
	Status        Status
	Type          Type
	Limit         int
	Offset        int
}

type Page struct {
	Items  []Notification `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type Stats struct {
	Sent        int             `json:"sent"`
	Failed      int             `json:"failed"`
	Programmed  int             `json:"programmed"`
	ByType      map[Type]int    `json:"by_type"`
	ByChannel   map[Channel]int `json:"by_channel"`
	SuccessRate float64         `json:"success_rate"`
}
