package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	dateLayout      = "2006-01-02"
)

// actorFromRequest reads the caller identity set by the upstream gateway.
// Requests without a role act as patients.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (appointment.Actor, bool) {
	var actor appointment.Actor

	if raw := strings.TrimSpace(r.Header.Get(headerActorID)); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", headerActorID+" must be a valid UUID")
			return actor, false
		}
		actor.ID = id
	}

	actor.Role = appointment.RolePatient
	if raw := strings.TrimSpace(r.Header.Get(headerActorRole)); raw != "" {
		role := appointment.Role(strings.ToUpper(raw))
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_actor_role", "unknown "+headerActorRole)
			return actor, false
		}
		actor.Role = role
	}

	return actor, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func boolQuery(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be true or false")
		return false, false
	}
	return b, true
}

// dateQuery parses a YYYY-MM-DD query value as a calendar day in loc.
func dateQuery(w http.ResponseWriter, r *http.Request, name string, loc *time.Location, required bool) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			writeError(w, http.StatusBadRequest, "missing_"+name, name+" is required (YYYY-MM-DD)")
			return nil, false
		}
		return nil, true
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

func (h *handlers) bookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appt, err := h.appointments.Book(r.Context(), appointment.BookRequest{
		PatientID:       req.PatientID,
		ProfessionalID:  req.ProfessionalID,
		StartAt:         req.StartAt,
		DurationMinutes: req.DurationMinutes,
		Status:          appointment.Status(req.Status),
		InsurerID:       req.InsurerID,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Actor:           actor,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	upd := appointment.UpdateRequest{
		StartAt:         req.StartAt,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Actor:           actor,
	}
	if req.Status != nil {
		st := appointment.Status(*req.Status)
		upd.Status = &st
	}

	appt, err := h.appointments.Update(r.Context(), id, upd)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appt, err := h.appointments.Cancel(r.Context(), id, req.Reason, actor)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) listProfessionalAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	day, ok := dateQuery(w, r, "date", h.schedules.Location(), true)
	if !ok {
		return
	}

	list, err := h.appointments.ListByProfessional(r.Context(), id, *day)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[appointment.Appointment]{Items: list})
}

func (h *handlers) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(w, r, "offset")
	if !ok {
		return
	}

	list, err := h.appointments.ListByPatient(r.Context(), id, limit, offset)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[appointment.Appointment]{Items: list})
}
