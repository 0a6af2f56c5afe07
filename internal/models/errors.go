package models

import (
	"errors"
	"strings"
)

var (
	ErrAuth              = errors.New("invalid credentials")
	ErrAuthRequired      = errors.New("authentication required")
	ErrForbidden         = errors.New("action not permitted for this role")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrNetwork           = errors.New("backend unreachable")
	ErrTimeout           = errors.New("backend timed out")
	ErrNotFound          = errors.New("not found")

	// ErrStale marks a result that arrived after its request was superseded.
	// Callers drop it without notifying the user.
	ErrStale = errors.New("stale response")

	ErrValidation = errors.New("validation failed")
)

// ValidationError lists the offending fields. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []string
	Reason string
}

func NewValidationError(reason string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: reason}
}

func (v *ValidationError) Error() string {
	msg := v.Reason
	if msg == "" {
		msg = ErrValidation.Error()
	}
	if len(v.Fields) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(v.Fields, ", ")
}

func (v *ValidationError) Is(target error) bool { return target == ErrValidation }
