package httpx

import (
	"errors"
	"net/http"

	"github.com/decoaromas/decoaromas-admin/internal/backend"
)

// ErrValidation marks request input rejected before reaching the backend.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain and backend errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		verr     *backend.ValidationError
		conflict *backend.ConflictError
		status   *backend.StatusError
	)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, backend.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &verr):
		writeProblem(w, ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Fields: verr.Details})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Message)
	case errors.As(err, &status):
		Problem(w, http.StatusBadGateway, "Bad Gateway", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
