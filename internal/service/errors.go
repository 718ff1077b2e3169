package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrOAuthInvalid       = errors.New("oauth data invalid")
	ErrOAuthUnavailable   = errors.New("oauth not configured")
	ErrWeatherUnavailable = errors.New("weather provider not configured")
	ErrUpstream           = errors.New("upstream provider failed")
)

// ValidationError transporta el detalle por campo de una entrada rechazada.
// errors.Is(err, ErrValidation) siempre es true; Err permite distinguir la causa
// (por ejemplo ErrAlreadyExists).
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func newValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields, Err: ErrValidation}
}

func newConflictError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields, Err: ErrAlreadyExists}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	cause := ErrValidation
	if e.Err != nil {
		cause = e.Err
	}
	if len(parts) == 0 {
		return cause.Error()
	}
	return cause.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
