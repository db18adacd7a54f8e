package service

import "errors"

// ErrNotFound is returned when no task matches the (id, owner) scope. A task
// that exists but belongs to another user is deliberately indistinguishable
// from one that never existed.
var ErrNotFound = errors.New("task not found")

// ValidationError reports malformed input. Its message is safe to show to
// the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
