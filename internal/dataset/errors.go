package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks inputs that violate a dataset invariant.
var ErrValidation = errors.New("validation error")

// ValidationError describes which operation rejected which column and why.
type ValidationError struct {
	Op     string
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 3)
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if col := strings.TrimSpace(e.Column); col != "" {
		parts = append(parts, fmt.Sprintf("column %q", col))
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		parts = append(parts, reason)
	}
	if len(parts) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ": "))
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationf(op, column, format string, args ...any) error {
	return &ValidationError{Op: op, Column: column, Reason: fmt.Sprintf(format, args...)}
}
