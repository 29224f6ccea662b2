package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"feedback-service/common/httputil"
)

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err to w. Business errors are returned with their message;
// anything else is logged and reported generically.
func Respond(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "internal error", "error", err, "path", r.URL.Path)
		httputil.RespondWithError(w, code, "internal server error")
		return
	}

	logger.InfoContext(r.Context(), "request rejected", "status", code, "reason", err.Error())

	var appErr *Error
	if errors.As(err, &appErr) && len(appErr.Details) > 0 {
		httputil.RespondWithErrorDetails(w, code, appErr.Message, appErr.Details)
		return
	}
	httputil.RespondWithError(w, code, err.Error())
}
