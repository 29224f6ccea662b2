package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthenticated is raised by the auth layer, never by domain services.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error carries a kind, a caller-facing message and optional details.
type Error struct {
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newf(ErrConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newf(ErrForbidden, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newf(ErrInvalidState, format, args...)
}

func Unauthenticated(format string, args ...interface{}) error {
	return newf(ErrUnauthenticated, format, args...)
}

// HasDependents builds the guarded-delete rejection: the entity still has
// count feedback records pointing at it.
func HasDependents(entity string, count int, alternative string) error {
	return &Error{
		Kind: ErrConflict,
		Message: fmt.Sprintf("cannot delete %s: %d feedback record(s) reference it; %s instead",
			entity, count, alternative),
		Details: map[string]interface{}{"dependentFeedback": count},
	}
}

// DependentCount extracts the dependent count from a guarded-delete error.
func DependentCount(err error) (int, bool) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return 0, false
	}
	count, ok := appErr.Details["dependentFeedback"].(int)
	return count, ok
}
