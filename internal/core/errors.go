package core

import "errors"

// ErrNotFound is returned when an operation references an expense id that
// does not exist or is not owned by the requesting user. The two cases are
// deliberately indistinguishable so ids cannot be probed across owners.
var ErrNotFound = errors.New("expense not found")

// ErrUserNotFound is returned for lookups of unknown users or for session
// tokens that are missing or expired.
var ErrUserNotFound = errors.New("user not found")

// ValidationError reports malformed or out-of-range input. It is always
// produced before any store access, so a failed operation is never
// partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
