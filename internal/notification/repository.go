package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrConfigNotFound       = apperr.NotFound("notification_config_not_found", "notification config not found")
	ErrTemplateNotFound     = apperr.NotFound("notification_template_not_found", "notification template not found")
	ErrAppointmentNotFound  = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrNotificationNotFound = apperr.NotFound("notification_not_found", "notification not found")
)

type Repository interface {
	FindConfig(ctx context.Context, t Type) (*Config, error)
	// FindActiveTemplate picks the most recently updated active template.
	FindActiveTemplate(ctx context.Context, t Type, c Channel) (*Template, error)
	LoadAppointmentData(ctx context.Context, appointmentID uuid.UUID) (*AppointmentData, error)

	Create(ctx context.Context, n Notification) (*Notification, error)
	// MarkSent and MarkFailed both count one attempt.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, metadata map[string]string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// SupersedeProgrammed retires the appointment's PROGRAMMED rows other
	// than CANCELLATION and reports how many were touched.
	SupersedeProgrammed(ctx context.Context, appointmentID uuid.UUID) (int, error)

	// Claims move the selected rows to PENDING so concurrent workers skip them.
	// Rows of cancelled appointments are only claimed for CANCELLATION.
	ClaimDueProgrammed(ctx context.Context, now time.Time, limit int) ([]Notification, error)
	ClaimRetryableFailed(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]Notification, error)

	List(ctx context.Context, f ListFilter) ([]Notification, int, error)
	Stats(ctx context.Context, from, to *time.Time) (*Stats, error)

	ListConfigs(ctx context.Context) ([]Config, error)
	UpsertConfig(ctx context.Context, c Config) (*Config, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, t Template) (*Template, error)
}
