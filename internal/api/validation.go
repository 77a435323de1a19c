package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

var validationMessages = map[string]string{
	"required":           "field is required",
	"min":                "value is too small",
	"max":                "value is too long",
	"oneof":              "value is not allowed",
	"email":              "expected an email address",
	"hhmm":               "expected HH:MM",
	"appointment_status": "unknown appointment status",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "appointment_status", func(fl validator.FieldLevel) bool {
		return appointment.Status(fl.Field().String()).Valid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", fmt.Sprintf("could not parse JSON: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return false
		}
		fields := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			msg := validationMessages[fe.Tag()]
			if msg == "" {
				msg = fe.Error()
			}
			fields = append(fields, ValidationError{Field: fe.Field(), Message: msg})
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Details: "request body failed validation",
			Fields:  fields,
		})
		return false
	}
	return true
}
