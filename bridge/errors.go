package bridge

import (
	"context"
	"errors"
	"fmt"
)

// Status classifies the outcome of a bridge call. The numeric values are
// part of the foreign ABI and must not change.
type Status int32

// Status codes.
const (
	StatusSuccess Status = iota
	StatusInvalidInput
	StatusTransportError
	StatusConversionError
	StatusMutexError
	StatusTimeout
)

var statusNames = [...]string{
	StatusSuccess:         "success",
	StatusInvalidInput:    "invalidInput",
	StatusTransportError:  "transportError",
	StatusConversionError: "conversionError",
	StatusMutexError:      "mutexError",
	StatusTimeout:         "timeout",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// IsValid returns true for the known statuses.
func (s Status) IsValid() bool {
	return s >= StatusSuccess && s <= StatusTimeout
}

// ParseStatus returns the status with the given wire name.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return Status(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// Errors returned by the bridge.
var (
	// ErrTransportNotFound is reported when a handle's slot is empty.
	ErrTransportNotFound = errors.New("transport not found")

	// ErrSchedulerClosed is the panic value of Submit after Close.
	ErrSchedulerClosed = errors.New("scheduler closed")

	// ErrPortInUse is returned when opening a port that already has a waiter.
	ErrPortInUse = errors.New("port in use")

	// ErrUnknownStatus is returned when decoding an unknown status name.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrBridgeClosed is returned when creating handles after Close.
	ErrBridgeClosed = errors.New("bridge closed")
)

// Error is a classified call failure.
type Error struct {
	Status Status
	Info   string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Info
	case e.Info == "":
		return e.Err.Error()
	default:
		return e.Info + ": " + e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(status Status, info string, err error) *Error {
	return &Error{Status: status, Info: info, Err: err}
}

// HandleError classifies err. A nil error stays nil, an *Error keeps its
// status, and context expiry or cancellation becomes StatusTimeout. Anything
// else is given status.
func HandleError(err error, status Status) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(StatusTimeout, "", err)
	}
	return newError(status, "", err)
}

// StatusOf returns the status carried by err, StatusSuccess for nil and
// StatusTransportError for unclassified errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusTransportError
}
