package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// InfrastructureError wraps a persistence or transport failure so call sites
// can decide whether to degrade gracefully or surface a server error.
type InfrastructureError struct {
	Op  string
	Err error
}

func NewInfrastructureError(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

func (err InfrastructureError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err InfrastructureError) Unwrap() error { return err.Err }

func IsInfrastructureError(err error) bool {
	_, ok := errors.Cause(err).(*InfrastructureError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
