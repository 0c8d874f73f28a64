package rws

import (
	"errors"
	"fmt"
	"net/http"
)

// Client errors.
var (
	ErrClosed            = errors.New("rws: client closed")
	ErrInvalidURL        = errors.New("rws: invalid controller URL")
	ErrUnexpectedPayload = errors.New("rws: unexpected response payload")
	ErrNotSubscribed     = errors.New("rws: resource not subscribed")
)

// TransportError wraps a network-level failure talking to the controller.
type TransportError struct {
	Op     string
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rws: %s %s %s: %v", e.Op, e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a request the controller answered with an error status.
type StatusError struct {
	StatusCode int
	Code       int
	Message    string
	Path       string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("rws: %s: %d %s (code %d)", e.Path, e.StatusCode, msg, e.Code)
	}
	return fmt.Sprintf("rws: %s: %d %s", e.Path, e.StatusCode, msg)
}

// IsStatus reports whether err is a *StatusError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
