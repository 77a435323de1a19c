package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, actor appointment.Actor) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, req appointment.UpdateRequest) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]appointment.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error)
}

type ScheduleService interface {
	Location() *time.Location
	GetAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) (*schedule.Availability, error)
	ListSchedules(ctx context.Context, professionalID uuid.UUID) ([]schedule.WeeklySchedule, error)
	CreateSchedule(ctx context.Context, req schedule.CreateScheduleRequest) (*schedule.WeeklySchedule, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) (*schedule.WeeklySchedule, error)

	ListProfessionals(ctx context.Context, f schedule.ProfessionalFilter) ([]schedule.Professional, error)
	CreateProfessional(ctx context.Context, req schedule.ProfessionalRequest) (*schedule.Professional, error)
	UpdateProfessional(ctx context.Context, id uuid.UUID, req schedule.ProfessionalUpdate) (*schedule.Professional, error)
	DeactivateProfessional(ctx context.Context, id uuid.UUID) (*schedule.Professional, error)
}

type PatientService interface {
	ListPatients(ctx context.Context, f patient.ListFilter) (*patient.Page, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	CreatePatient(ctx context.Context, req patient.CreateRequest) (*patient.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, req patient.UpdateRequest) (*patient.Patient, error)
	DeactivatePatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	ListInsurers(ctx context.Context) ([]patient.Insurer, error)
	CreateInsurer(ctx context.Context, name string) (*patient.Insurer, error)
}

type NotificationAdmin interface {
	List(ctx context.Context, f notification.ListFilter) (*notification.Page, error)
	Stats(ctx context.Context, from, to *time.Time) (*notification.Stats, error)
	ListConfigs(ctx context.Context) ([]notification.Config, error)
	UpsertConfig(ctx context.Context, c notification.Config) (*notification.Config, error)
	ListTemplates(ctx context.Context) ([]notification.Template, error)
	CreateTemplate(ctx context.Context, t notification.Template) (*notification.Template, error)
}

type RouterConfig struct {
	Appointments  AppointmentService
	Schedules     ScheduleService
	Patients      PatientService
	Notifications NotificationAdmin
	Health        *HealthHandler
	Metrics       http.Handler
	Logger        zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	h := &handlers{
		appointments:  cfg.Appointments,
		schedules:     cfg.Schedules,
		patients:      cfg.Patients,
		notifications: cfg.Notifications,
		log:           cfg.Logger,
	}

	r.Get("/professionals", h.listProfessionals)
	r.Post("/professionals", h.createProfessional)
	r.Route("/professionals/{id}", func(r chi.Router) {
		r.Patch("/", h.updateProfessional)
		r.Delete("/", h.deactivateProfessional)
		r.Get("/availability", h.getAvailability)
		r.Get("/schedules", h.listSchedules)
		r.Post("/schedules", h.createSchedule)
		r.Get("/appointments", h.listProfessionalAppointments)
	})
	r.Delete("/schedules/{id}", h.deactivateSchedule)

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.listPatients)
		r.Post("/", h.createPatient)
		r.Get("/{id}", h.getPatient)
		r.Patch("/{id}", h.updatePatient)
		r.Delete("/{id}", h.deactivatePatient)
		r.Get("/{id}/appointments", h.listPatientAppointments)
	})

	r.Get("/insurers", h.listInsurers)
	r.Post("/insurers", h.createInsurer)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.bookAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Patch("/{id}", h.updateAppointment)
		r.Post("/{id}/cancel", h.cancelAppointment)
	})

	r.Get("/notifications", h.listNotifications)
	r.Get("/notifications/stats", h.notificationStats)
	r.Get("/notification-configs", h.listNotificationConfigs)
	r.Put("/notification-configs/{type}", h.upsertNotificationConfig)
	r.Get("/notification-templates", h.listNotificationTemplates)
	r.Post("/notification-templates", h.createNotificationTemplate)

	return r
}

type handlers struct {
	appointments  AppointmentService
	schedules     ScheduleService
	patients      PatientService
	notifications NotificationAdmin
	log           zerolog.Logger
}
