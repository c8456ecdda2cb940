package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a backend call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicate indicates the record already exists in the backend.
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate record: %s", e.Key)
}

// ErrInvalidIndex indicates a positional address outside the data rows.
type ErrInvalidIndex struct {
	Index int
}

func (e *ErrInvalidIndex) Error() string {
	return fmt.Sprintf("invalid transaction index: %d", e.Index)
}

// ErrConflict indicates the addressed record changed under the caller.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnsupported indicates the configured backend cannot perform an operation.
type ErrUnsupported struct {
	Operation string
	Backend   string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("%s is not supported by the %s backend", e.Operation, e.Backend)
}

// ErrForbidden indicates the caller lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates a missing or invalid token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// IsTransient reports whether err means "the backend could not be reached,
// try again later" as opposed to a definitive answer.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var notFound *ErrNotFound
	var duplicate *ErrDuplicate
	var validation *ErrValidation
	var conflict *ErrConflict
	var invalidIndex *ErrInvalidIndex
	if errors.As(err, &notFound) || errors.As(err, &duplicate) || errors.As(err, &validation) ||
		errors.As(err, &conflict) || errors.As(err, &invalidIndex) {
		return false
	}
	var external *ErrExternalService
	var circuitOpen *ErrCircuitOpen
	var timeout *ErrTimeout
	return errors.As(err, &external) || errors.As(err, &circuitOpen) || errors.As(err, &timeout)
}

// IsAlreadyPersisted reports whether err means the record is already stored.
func IsAlreadyPersisted(err error) bool {
	var duplicate *ErrDuplicate
	return errors.As(err, &duplicate)
}
