package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrUnauthenticated = errors.New("not signed in")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnavailable     = errors.New("service unavailable")
)

// ValidationError rejects user input before it is accepted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
