package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a business key already exists.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the request cannot be applied to current state.
	ErrConflict = errors.New("conflict with current state")
	// ErrInvalidNumericInput indicates a required numeric field could not be parsed.
	ErrInvalidNumericInput = fmt.Errorf("invalid numeric input: %w", ErrValidation)
)

// NumericInputError reports which field failed numeric parsing.
type NumericInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *NumericInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %q %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %q is not a number", e.Field, e.Value)
}

func (e *NumericInputError) Unwrap() error {
	return ErrInvalidNumericInput
}

// UserSafeMessage returns a message that can be shown to API consumers.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "internal error"
	}
}

// ErrUndefinedRatio is returned instead of Inf/NaN when a denominator is zero.
var ErrUndefinedRatio = errors.New("ratio undefined: zero denominator")
