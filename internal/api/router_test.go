package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type testServer struct {
	appts  *fakeAppointments
	sched  *fakeSchedules
	pats   *fakePatients
	notifs *fakeNotifications
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{appts: &fakeAppointments{}, sched: &fakeSchedules{}, pats: &fakePatients{}, notifs: &fakeNotifications{}}
	s.router = NewRouter(RouterConfig{
		Appointments:  s.appts,
		Schedules:     s.sched,
		Patients:      s.pats,
		Notifications: s.notifs,
		Health:        NewHealthHandler("test", "v0"),
		Logger:        logging.Nop(),
	})
	return s
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestBookAppointment(t *testing.T) {
	s := newTestServer(t)
	patientID, profID, actorID := uuid.New(), uuid.New(), uuid.New()

	body := `{"patient_id":"` + patientID.String() + `","professional_id":"` + profID.String() +
		`","start_at":"2024-06-10T10:00:00-03:00","duration_minutes":45,"reason":"control"}`
	rec := s.do(http.MethodPost, "/appointments", body, map[string]string{
		headerActorID:   actorID.String(),
		headerActorRole: "reception",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	got := s.appts.lastBook
	assert.Equal(t, patientID, got.PatientID)
	assert.Equal(t, profID, got.ProfessionalID)
	assert.Equal(t, 45, got.DurationMinutes)
	assert.True(t, got.StartAt.Equal(time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, appointment.Actor{ID: actorID, Role: appointment.RoleReception}, got.Actor)
	require.NotNil(t, got.Reason)
	assert.Equal(t, "control", *got.Reason)
}

func TestBookAppointment_DefaultsToPatientActor(t *testing.T) {
	s := newTestServer(t)
	body := `{"patient_id":"` + uuid.NewString() + `","professional_id":"` + uuid.NewString() + `","start_at":"2024-06-10T10:00:00Z"}`

	rec := s.do(http.MethodPost, "/appointments", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, appointment.RolePatient, s.appts.lastBook.Actor.Role)
}

func TestBookAppointment_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/appointments", `{"professional_id":"`+uuid.NewString()+`","status":"COMPLETED"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "validation_failed", resp.Error)
	fields := map[string]string{}
	for _, f := range resp.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "field is required", fields["patient_id"])
	assert.Equal(t, "field is required", fields["start_at"])
	assert.Equal(t, "value is not allowed", fields["status"])
}

func TestBookAppointment_RejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/appointments", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decodeError(t, rec).Error)

	rec = s.do(http.MethodPost, "/appointments", `{}`, map[string]string{headerActorRole: "JANITOR"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_actor_role", decodeError(t, rec).Error)

	rec = s.do(http.MethodPost, "/appointments", `{}`, map[string]string{headerActorID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_actor_id", decodeError(t, rec).Error)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{appointment.ErrSlotTaken, http.StatusConflict, "slot_taken"},
		{appointment.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{appointment.ErrStartInPast, http.StatusBadRequest, "start_in_past"},
		{errors.New("pool closed"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			s := newTestServer(t)
			s.appts.err = tc.err

			rec := s.do(http.MethodGet, "/appointments/"+uuid.NewString(), "", nil)
			require.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.code, resp.Error)
			assert.NotContains(t, resp.Details, "pool closed")
		})
	}
}

func TestCancelAppointment(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	rec := s.do(http.MethodPost, "/appointments/"+id.String()+"/cancel", `{"reason":"viaje"}`,
		map[string]string{headerActorRole: "PROFESSIONAL"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, s.appts.lastCancel.id)
	assert.Equal(t, "viaje", s.appts.lastCancel.reason)
	assert.Equal(t, appointment.RoleProfessional, s.appts.lastCancel.actor.Role)

	rec = s.do(http.MethodPost, "/appointments/"+id.String()+"/cancel", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/appointments/not-a-uuid/cancel", `{"reason":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Error)
}

func TestUpdateAppointment(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPatch, "/appointments/"+uuid.NewString(), `{"status":"IN_PROGRESS","duration_minutes":60}`,
		map[string]string{headerActorRole: "ADMIN"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, s.appts.lastUpdate.Status)
	assert.Equal(t, appointment.StatusInProgress, *s.appts.lastUpdate.Status)
	assert.Equal(t, 60, *s.appts.lastUpdate.DurationMinutes)
	assert.Nil(t, s.appts.lastUpdate.StartAt)

	rec = s.do(http.MethodPatch, "/appointments/"+uuid.NewString(), `{"status":"DONE"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAvailability(t *testing.T) {
	s := newTestServer(t)
	profID := uuid.New()

	rec := s.do(http.MethodGet, "/professionals/"+profID.String()+"/availability?date=2024-06-10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, testLoc), s.sched.lastDate)

	var avail schedule.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avail))
	assert.Equal(t, "2024-06-10", avail.Date)
	assert.NotNil(t, avail.Slots)

	rec = s.do(http.MethodGet, "/professionals/"+profID.String()+"/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_date", decodeError(t, rec).Error)

	rec = s.do(http.MethodGet, "/professionals/"+profID.String()+"/availability?date=10/06/2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.sched.err = schedule.ErrProfessionalNotFound
	rec = s.do(http.MethodGet, "/professionals/"+profID.String()+"/availability?date=2024-06-10", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSchedule(t *testing.T) {
	s := newTestServer(t)
	profID := uuid.New()

	rec := s.do(http.MethodPost, "/professionals/"+profID.String()+"/schedules", `{"day_of_week":0,"start":"09:00","end":"13:00"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, schedule.CreateScheduleRequest{ProfessionalID: profID, DayOfWeek: 0, Start: "09:00", End: "13:00"}, s.sched.lastCreate)

	rec = s.do(http.MethodPost, "/professionals/"+profID.String()+"/schedules", `{"day_of_week":7,"start":"9am","end":"13:00"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeError(t, rec).Fields, 2)
}

func TestProfessionalEndpoints(t *testing.T) {
	s := newTestServer(t)
	profID := uuid.New()

	rec := s.do(http.MethodGet, "/professionals?specialty=Cardiologia&include_inactive=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schedule.ProfessionalFilter{Specialty: "Cardiologia", IncludeInactive: true}, s.sched.lastProfFilter)

	rec = s.do(http.MethodGet, "/professionals?include_inactive=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/professionals", `{"first_name":"Laura","last_name":"Díaz","specialty":"Pediatría","slot_duration_minutes":20}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 20, s.sched.lastProfCreate.SlotDurationMinutes)

	rec = s.do(http.MethodPost, "/professionals", `{"first_name":"Laura","slot_duration_minutes":2}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeError(t, rec).Fields, 3)

	rec = s.do(http.MethodPatch, "/professionals/"+profID.String(), `{"specialty":"Clínica","active":false}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, s.sched.lastProfUpdate.Specialty)
	assert.Equal(t, "Clínica", *s.sched.lastProfUpdate.Specialty)
	require.NotNil(t, s.sched.lastProfUpdate.Active)
	assert.False(t, *s.sched.lastProfUpdate.Active)
	assert.Nil(t, s.sched.lastProfUpdate.FirstName)

	rec = s.do(http.MethodDelete, "/professionals/"+profID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s.sched.err = schedule.ErrProfessionalNotFound
	rec = s.do(http.MethodDelete, "/professionals/"+profID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatientEndpoints(t *testing.T) {
	s := newTestServer(t)
	patientID := uuid.New()
	insurerID := uuid.New()

	rec := s.do(http.MethodGet, "/patients?q=perez&limit=20&offset=40", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, patient.ListFilter{Query: "perez", Limit: 20, Offset: 40}, s.pats.lastFilter)

	rec = s.do(http.MethodPost, "/patients",
		`{"first_name":"Ana","last_name":"Pérez","email":"ana@example.com","phone":"11 5555-1234","insurer_id":"`+insurerID.String()+`"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, s.pats.lastCreate.InsurerID)
	assert.Equal(t, insurerID, *s.pats.lastCreate.InsurerID)

	rec = s.do(http.MethodPost, "/patients", `{"first_name":"Ana","last_name":"Pérez","email":"not-an-email"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeError(t, rec).Fields
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Field)

	rec = s.do(http.MethodGet, "/patients/"+patientID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPatch, "/patients/"+patientID.String(), `{"email":"","insurer_id":""}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, s.pats.lastUpdate.Email)
	assert.Empty(t, *s.pats.lastUpdate.Email)
	require.NotNil(t, s.pats.lastUpdate.InsurerID)
	assert.Equal(t, uuid.Nil, *s.pats.lastUpdate.InsurerID)
	assert.Nil(t, s.pats.lastUpdate.Phone)

	rec = s.do(http.MethodPatch, "/patients/"+patientID.String(), `{"insurer_id":"osde"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/patients/"+patientID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/patients/"+patientID.String()+"/appointments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s.pats.err = patient.ErrPatientNotFound
	rec = s.do(http.MethodGet, "/patients/"+patientID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInsurerEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/insurers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/insurers", `{"name":"OSDE"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "OSDE", s.pats.lastInsurer)

	rec = s.do(http.MethodPost, "/insurers", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.pats.err = patient.ErrInsurerExists
	rec = s.do(http.MethodPost, "/insurers", `{"name":"OSDE"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insurer_exists", decodeError(t, rec).Error)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/notifications?status=failed&type=REMINDER_2H&limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.StatusFailed, s.notifs.lastFilter.Status)
	assert.Equal(t, notification.TypeReminder2h, s.notifs.lastFilter.Type)
	assert.Equal(t, 10, s.notifs.lastFilter.Limit)

	rec = s.do(http.MethodGet, "/notifications?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/notifications/stats?from=2024-06-01&to=2024-06-30", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.notifs.lastTo)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, testLoc), *s.notifs.lastFrom)
	assert.True(t, s.notifs.lastTo.Before(time.Date(2024, 7, 1, 0, 0, 0, 0, testLoc)))
	assert.True(t, s.notifs.lastTo.After(time.Date(2024, 6, 30, 23, 59, 59, 0, testLoc)))

	rec = s.do(http.MethodPut, "/notification-configs/reminder_24h",
		`{"email_enabled":true,"whatsapp_enabled":true,"send_window_start":"08:00","send_window_end":"20:00"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, notification.TypeReminder24h, s.notifs.lastConfig.Type)
	assert.True(t, s.notifs.lastConfig.WhatsAppEnabled)

	rec = s.do(http.MethodPut, "/notification-configs/REMINDER_24H", `{"send_window_start":"8pm","send_window_end":"20:00"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/notification-templates", `{"type":"CONFIRMATION","channel":"WHATSAPP","body":"Hola {paciente}"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, s.notifs.lastTemplate.Active)
	assert.Equal(t, notification.ChannelWhatsApp, s.notifs.lastTemplate.Channel)
}

func TestHealth(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	tests := []struct {
		name   string
		checks []DependencyCheck
		status int
		want   string
	}{
		{"all up", []DependencyCheck{{Name: "postgres", Critical: true, Ping: up}, {Name: "redis", Ping: up}}, http.StatusOK, "ok"},
		{"redis down", []DependencyCheck{{Name: "postgres", Critical: true, Ping: up}, {Name: "redis", Ping: down}}, http.StatusOK, "degraded"},
		{"postgres down", []DependencyCheck{{Name: "postgres", Critical: true, Ping: down}, {Name: "redis", Ping: up}}, http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler("test", "v0", tc.checks...)
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tc.status, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.want, resp.Status)
			assert.Len(t, resp.Dependencies, 2)
		})
	}

	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(logging.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Error)
}
