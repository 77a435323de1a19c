package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/notification"
)

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := notification.ListFilter{
		Status: notification.Status(strings.ToUpper(q.Get("status"))),
		Type:   notification.Type(strings.ToUpper(q.Get("type"))),
	}

	for param, dst := range map[string]**uuid.UUID{"appointment_id": &f.AppointmentID, "patient_id": &f.PatientID} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
			return
		}
		*dst = &id
	}

	var ok bool
	if f.Limit, ok = intQuery(w, r, "limit"); !ok {
		return
	}
	if f.Offset, ok = intQuery(w, r, "offset"); !ok {
		return
	}

	page, err := h.notifications.List(r.Context(), f)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// notificationStats takes an optional from/to day range; to is inclusive.
func (h *handlers) notificationStats(w http.ResponseWriter, r *http.Request) {
	loc := h.schedules.Location()
	from, ok := dateQuery(w, r, "from", loc, false)
	if !ok {
		return
	}
	to, ok := dateQuery(w, r, "to", loc, false)
	if !ok {
		return
	}
	if to != nil {
		end := to.AddDate(0, 0, 1).Add(-1)
		to = &end
	}

	stats, err := h.notifications.Stats(r.Context(), from, to)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) listNotificationConfigs(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListConfigs(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[notification.Config]{Items: list})
}

func (h *handlers) upsertNotificationConfig(w http.ResponseWriter, r *http.Request) {
	t := notification.Type(strings.ToUpper(chi.URLParam(r, "type")))
	var req UpsertNotificationConfigRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	saved, err := h.notifications.UpsertConfig(r.Context(), notification.Config{
		Type:            t,
		EmailEnabled:    req.EmailEnabled,
		WhatsAppEnabled: req.WhatsAppEnabled,
		SMSEnabled:      req.SMSEnabled,
		WindowStart:     req.SendWindowStart,
		WindowEnd:       req.SendWindowEnd,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

func (h *handlers) listNotificationTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListTemplates(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[notification.Template]{Items: list})
}

func (h *handlers) createNotificationTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	created, err := h.notifications.CreateTemplate(r.Context(), notification.Template{
		Type:      notification.Type(req.Type),
		Channel:   notification.Channel(req.Channel),
		Subject:   req.Subject,
		Body:      req.Body,
		Active:    active,
		Variables: req.Variables,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
