package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

func (h *handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	date, ok := dateQuery(w, r, "date", h.schedules.Location(), true)
	if !ok {
		return
	}

	avail, err := h.schedules.GetAvailability(r.Context(), id, *date)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, avail)
}

func (h *handlers) listSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	list, err := h.schedules.ListSchedules(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[schedule.WeeklySchedule]{Items: list})
}

func (h *handlers) createSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req CreateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ws, err := h.schedules.CreateSchedule(r.Context(), schedule.CreateScheduleRequest{
		ProfessionalID: id,
		DayOfWeek:      *req.DayOfWeek,
		Start:          req.Start,
		End:            req.End,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

func (h *handlers) deactivateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.schedules.DeactivateSchedule(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}
