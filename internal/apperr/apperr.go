// Package apperr defines the error kinds surfaced by the claimdesk core.
//
// Every domain failure wraps exactly one kind so callers can branch with
// errors.Is. ErrConflict is a specialisation of ErrValidation: a conflict
// also matches ErrValidation.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers malformed input and business-rule violations.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is a validation failure caused by competing state, such
	// as overlapping bookings or an exhausted claim limit.
	ErrConflict = errors.New("conflict")
	// ErrForbidden means the acting user's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// Error carries a message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the kind; conflicts also unwrap to ErrValidation.
func (e *Error) Unwrap() []error {
	if e.Kind == ErrConflict {
		return []error{ErrConflict, ErrValidation}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// Invalid builds an ErrValidation error.
func Invalid(format string, args ...any) error { return newf(ErrValidation, format, args...) }

// Conflict builds an ErrConflict error.
func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// Forbidden builds an ErrForbidden error.
func Forbidden(format string, args ...any) error { return newf(ErrForbidden, format, args...) }

// FromLookup converts a failed single-row lookup into a NotFound error when
// the row is missing, and wraps anything else as a storage failure.
func FromLookup(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s not found: %v", what, id)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

// Status maps an error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrValidation):
		return 400
	}
	return 500
}
