package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

func (h *handlers) listProfessionals(w http.ResponseWriter, r *http.Request) {
	inactive, ok := boolQuery(w, r, "include_inactive")
	if !ok {
		return
	}

	list, err := h.schedules.ListProfessionals(r.Context(), schedule.ProfessionalFilter{
		Specialty:       r.URL.Query().Get("specialty"),
		IncludeInactive: inactive,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[schedule.Professional]{Items: list})
}

func (h *handlers) createProfessional(w http.ResponseWriter, r *http.Request) {
	var req CreateProfessionalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.schedules.CreateProfessional(r.Context(), schedule.ProfessionalRequest{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Specialty:           req.Specialty,
		SlotDurationMinutes: req.SlotDurationMinutes,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *handlers) updateProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateProfessionalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.schedules.UpdateProfessional(r.Context(), id, schedule.ProfessionalUpdate{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Specialty:           req.Specialty,
		SlotDurationMinutes: req.SlotDurationMinutes,
		Active:              req.Active,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) deactivateProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.schedules.DeactivateProfessional(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	f := patient.ListFilter{Query: r.URL.Query().Get("q")}

	var ok bool
	if f.IncludeInactive, ok = boolQuery(w, r, "include_inactive"); !ok {
		return
	}
	if f.Limit, ok = intQuery(w, r, "limit"); !ok {
		return
	}
	if f.Offset, ok = intQuery(w, r, "offset"); !ok {
		return
	}

	page, err := h.patients.ListPatients(r.Context(), f)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) getPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.patients.GetPatient(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) createPatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.patients.CreatePatient(r.Context(), patient.CreateRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		InsurerID: req.InsurerID,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *handlers) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdatePatientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	upd := patient.UpdateRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Active:    req.Active,
	}
	if req.InsurerID != nil {
		insurer := uuid.Nil
		if *req.InsurerID != "" {
			var err error
			if insurer, err = uuid.Parse(*req.InsurerID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_insurer_id", "insurer_id must be a valid UUID")
				return
			}
		}
		upd.InsurerID = &insurer
	}

	p, err := h.patients.UpdatePatient(r.Context(), id, upd)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) deactivatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.patients.DeactivatePatient(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) listInsurers(w http.ResponseWriter, r *http.Request) {
	list, err := h.patients.ListInsurers(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[patient.Insurer]{Items: list})
}

func (h *handlers) createInsurer(w http.ResponseWriter, r *http.Request) {
	var req CreateInsurerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in, err := h.patients.CreateInsurer(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, in)
}
