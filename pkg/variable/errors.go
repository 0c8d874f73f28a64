package variable

import (
	"errors"
	"fmt"
)

// Errors returned by the adapters.
var (
	ErrTypeMismatch  = errors.New("value does not match declared type")
	ErrNotIndexable  = errors.New("variable is not a numeric array")
	ErrInvalidSignal = errors.New("invalid signal value")
	ErrUnknownSignal = errors.New("unknown signal type")
)

// TypeMismatchError describes a rejected write.
type TypeMismatchError struct {
	Kind     Kind
	DataType string
	Value    any
	Reason   string
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("cannot assign %T to %s variable", e.Value, e.DataType)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

func mismatch(kind Kind, dataType string, v any, reason string) error {
	return &TypeMismatchError{Kind: kind, DataType: dataType, Value: v, Reason: reason}
}
