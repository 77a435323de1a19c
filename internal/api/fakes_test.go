package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var testLoc = time.FixedZone("ART", -3*60*60)

type fakeAppointments struct {
	lastBook   appointment.BookRequest
	lastCancel struct {
		id     uuid.UUID
		reason string
		actor  appointment.Actor
	}
	lastUpdate appointment.UpdateRequest
	lastDay    time.Time
	err        error
}

func (f *fakeAppointments) result(id uuid.UUID) (*appointment.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &appointment.Appointment{ID: id, Status: appointment.StatusConfirmed}, nil
}

func (f *fakeAppointments) Book(_ context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
	f.lastBook = req
	return f.result(uuid.New())
}

func (f *fakeAppointments) Cancel(_ context.Context, id uuid.UUID, reason string, actor appointment.Actor) (*appointment.Appointment, error) {
	f.lastCancel.id, f.lastCancel.reason, f.lastCancel.actor = id, reason, actor
	return f.result(id)
}

func (f *fakeAppointments) Update(_ context.Context, id uuid.UUID, req appointment.UpdateRequest) (*appointment.Appointment, error) {
	f.lastUpdate = req
	return f.result(id)
}

func (f *fakeAppointments) Get(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return f.result(id)
}

func (f *fakeAppointments) ListByProfessional(_ context.Context, _ uuid.UUID, day time.Time) ([]appointment.Appointment, error) {
	f.lastDay = day
	return []appointment.Appointment{}, f.err
}

func (f *fakeAppointments) ListByPatient(context.Context, uuid.UUID, int, int) ([]appointment.Appointment, error) {
	return []appointment.Appointment{}, f.err
}

type fakeSchedules struct {
	lastDate       time.Time
	lastCreate     schedule.CreateScheduleRequest
	lastProfFilter schedule.ProfessionalFilter
	lastProfCreate schedule.ProfessionalRequest
	lastProfUpdate schedule.ProfessionalUpdate
	avail          *schedule.Availability
	err            error
}

func (f *fakeSchedules) Location() *time.Location { return testLoc }

func (f *fakeSchedules) GetAvailability(_ context.Context, id uuid.UUID, date time.Time) (*schedule.Availability, error) {
	f.lastDate = date
	if f.err != nil {
		return nil, f.err
	}
	if f.avail != nil {
		return f.avail, nil
	}
	return &schedule.Availability{ProfessionalID: id, Date: date.Format(dateLayout), Slots: []time.Time{}}, nil
}

func (f *fakeSchedules) ListSchedules(context.Context, uuid.UUID) ([]schedule.WeeklySchedule, error) {
	return []schedule.WeeklySchedule{}, f.err
}

func (f *fakeSchedules) CreateSchedule(_ context.Context, req schedule.CreateScheduleRequest) (*schedule.WeeklySchedule, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.WeeklySchedule{ID: uuid.New(), ProfessionalID: req.ProfessionalID, DayOfWeek: time.Weekday(req.DayOfWeek), Active: true}, nil
}

func (f *fakeSchedules) DeactivateSchedule(_ context.Context, id uuid.UUID) (*schedule.WeeklySchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.WeeklySchedule{ID: id}, nil
}

func (f *fakeSchedules) ListProfessionals(_ context.Context, fl schedule.ProfessionalFilter) ([]schedule.Professional, error) {
	f.lastProfFilter = fl
	return []schedule.Professional{}, f.err
}

func (f *fakeSchedules) CreateProfessional(_ context.Context, req schedule.ProfessionalRequest) (*schedule.Professional, error) {
	f.lastProfCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.Professional{ID: uuid.New(), FirstName: req.FirstName, LastName: req.LastName, Specialty: req.Specialty, Active: true}, nil
}

func (f *fakeSchedules) UpdateProfessional(_ context.Context, id uuid.UUID, req schedule.ProfessionalUpdate) (*schedule.Professional, error) {
	f.lastProfUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.Professional{ID: id, Active: true}, nil
}

func (f *fakeSchedules) DeactivateProfessional(_ context.Context, id uuid.UUID) (*schedule.Professional, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.Professional{ID: id}, nil
}

type fakePatients struct {
	lastFilter  patient.ListFilter
	lastCreate  patient.CreateRequest
	lastUpdate  patient.UpdateRequest
	lastInsurer string
	err         error
}

func (f *fakePatients) ListPatients(_ context.Context, fl patient.ListFilter) (*patient.Page, error) {
	f.lastFilter = fl
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Page{Items: []patient.Patient{}, Limit: 50}, nil
}

func (f *fakePatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Patient{ID: id, Active: true}, nil
}

func (f *fakePatients) CreatePatient(_ context.Context, req patient.CreateRequest) (*patient.Patient, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Patient{ID: uuid.New(), FirstName: req.FirstName, LastName: req.LastName, Active: true}, nil
}

func (f *fakePatients) UpdatePatient(_ context.Context, id uuid.UUID, req patient.UpdateRequest) (*patient.Patient, error) {
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Patient{ID: id, Active: true}, nil
}

func (f *fakePatients) DeactivatePatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Patient{ID: id}, nil
}

func (f *fakePatients) ListInsurers(context.Context) ([]patient.Insurer, error) {
	return []patient.Insurer{}, f.err
}

func (f *fakePatients) CreateInsurer(_ context.Context, name string) (*patient.Insurer, error) {
	f.lastInsurer = name
	if f.err != nil {
		return nil, f.err
	}
	return &patient.Insurer{ID: uuid.New(), Name: name}, nil
}

type fakeNotifications struct {
	lastFilter   notification.ListFilter
	lastFrom     *time.Time
	lastTo       *time.Time
	lastConfig   notification.Config
	lastTemplate notification.Template
	err          error
}

func (f *fakeNotifications) List(_ context.Context, fl notification.ListFilter) (*notification.Page, error) {
	f.lastFilter = fl
	if f.err != nil {
		return nil, f.err
	}
	return &notification.Page{Items: []notification.Notification{}, Limit: 50}, nil
}

func (f *fakeNotifications) Stats(_ context.Context, from, to *time.Time) (*notification.Stats, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return &notification.Stats{Sent: 3, Failed: 1, SuccessRate: 75}, nil
}

func (f *fakeNotifications) ListConfigs(context.Context) ([]notification.Config, error) {
	return []notification.Config{}, f.err
}

func (f *fakeNotifications) UpsertConfig(_ context.Context, c notification.Config) (*notification.Config, error) {
	f.lastConfig = c
	if f.err != nil {
		return nil, f.err
	}
	return &c, nil
}

func (f *fakeNotifications) ListTemplates(context.Context) ([]notification.Template, error) {
	return []notification.Template{}, f.err
}

func (f *fakeNotifications) CreateTemplate(_ context.Context, t notification.Template) (*notification.Template, error) {
	f.lastTemplate = t
	if f.err != nil {
		return nil, f.err
	}
	t.ID = uuid.New()
	return &t, nil
}
