package httpx

import (
	"errors"
	"net/http"

	"github.com/crestline-hq/crestline/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateInvoice):
		Problem(w, http.StatusConflict, "Duplicate Invoice", err.Error())
	case errors.Is(err, shared.ErrConfiguration):
		Problem(w, http.StatusUnprocessableEntity, "Configuration Error", err.Error())
	case errors.Is(err, shared.ErrInvalidPeriod):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Period", err.Error())
	case errors.Is(err, shared.ErrMissingTimesheet):
		Problem(w, http.StatusUnprocessableEntity, "Missing Timesheet", err.Error())
	case errors.Is(err, shared.ErrMalformedTimesheet):
		Problem(w, http.StatusBadRequest, "Malformed Timesheet", err.Error())
	case errors.Is(err, shared.ErrEmployeeMismatch):
		Problem(w, http.StatusBadRequest, "Employee Mismatch", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrRender):
		Problem(w, http.StatusBadGateway, "Render Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
