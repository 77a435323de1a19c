package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleError maps classified errors onto HTTP statuses. Anything
// unclassified is logged and reported as a 500 without internals.
func handleError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, apperr.CodeOf(err), err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, apperr.CodeOf(err), err.Error())
	case apperr.KindConflict:
		writeError(w, http.StatusConflict, apperr.CodeOf(err), err.Error())
	case apperr.KindTransient:
		writeError(w, http.StatusBadGateway, apperr.CodeOf(err), err.Error())
	default:
		log.Error().Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
