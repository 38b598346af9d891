// Package shared holds the error taxonomy used across the trajectory
// archive. Callers classify errors with errors.Is against the Err* kinds
// or with the Is* helpers; they never compare messages.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrNotFound = errors.New("entity not found")

	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	ErrBusy = errors.New("operation already in progress")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError is an error of a given Kind raised by Op in Domain. Err, when
// set, is the cause.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + e.Message
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Is matches another DomainError sharing domain, op and kind, so a wrapped
// copy of a sentinel still matches the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind && e.Message == t.Message
}

func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError is NewDomainError with a cause.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Trajectory errors.
var (
	ErrStudentNotFound    = NewDomainError("trajectory", "Find", ErrNotFound, "student not found")
	ErrInvalidYear        = NewDomainError("trajectory", "Validate", ErrValueOutOfRange, "school year must be between 1 and 5")
	ErrInvalidHeaderField = NewDomainError("trajectory", "UpdateHeaderField", ErrInvalidInput, "unknown header field")
	ErrInvalidCandidate   = NewDomainError("trajectory", "AdmitCandidate", ErrValidation, "candidate record rejected")
	ErrMalformedState     = NewDomainError("trajectory", "Load", ErrInvalidFormat, "persisted collection is malformed")
)

// Interpreter errors.
var (
	ErrInterpreterBusy     = NewDomainError("interpreter", "Interpret", ErrBusy, "an interpretation is already in progress")
	ErrInterpreterFailed   = NewDomainError("interpreter", "Interpret", ErrExternalService, "interpreter request failed")
	ErrInterpreterDisabled = NewDomainError("interpreter", "Interpret", ErrServiceUnavailable, "interpreter is not configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }

// IsValidation covers every input-side kind except ErrInvalidFormat, which
// also describes corrupt stored state.
func IsValidation(err error) bool {
	for _, kind := range []error{ErrValidation, ErrInvalidID, ErrInvalidInput, ErrEmptyValue, ErrValueOutOfRange} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) || errors.Is(err, ErrServiceUnavailable)
}
