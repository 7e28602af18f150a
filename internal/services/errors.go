package services

import (
	"errors"
	"fmt"
)

// ErrNoEntry is returned when a lookup finds nothing
var ErrNoEntry = errors.New("no such entry")

// ValidationError reports rejected input: out-of-range ratings, invalid pace
// values, negative slide numbers. The router logs these and drops the frame
// without broadcasting or mutating state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
