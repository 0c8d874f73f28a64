package mastership

import (
	"errors"
	"fmt"

	"github.com/rws-panel/rws-go/pkg/rws"
)

// ErrMastershipDenied matches every *DeniedError.
var ErrMastershipDenied = errors.New("mastership denied")

// Denial reasons.
var (
	ErrDeniedInAuto         = errors.New("lock held locally in automatic mode")
	ErrRemoteAccessTimeout  = errors.New("remote access request timed out")
	ErrRemoteAccessRejected = errors.New("remote access rejected")
	ErrControllerDenied     = errors.New("controller refused the request")
)

// DeniedError reports a mastership request that was refused. Reason is one
// of the reason sentinels; Err carries the controller error, if any.
type DeniedError struct {
	Domain rws.Domain
	Reason error
	Err    error
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("mastership %s denied: %v", e.Domain, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrMastershipDenied.
func (e *DeniedError) Is(target error) bool {
	return target == ErrMastershipDenied
}

func (e *DeniedError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// reasonLabel names a denial for metrics.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrDeniedInAuto):
		return "auto"
	case errors.Is(err, ErrRemoteAccessTimeout):
		return "timeout"
	case errors.Is(err, ErrRemoteAccessRejected):
		return "rejected"
	case errors.Is(err, ErrControllerDenied):
		return "controller"
	case rws.IsTransport(err):
		return "transport"
	default:
		return "other"
	}
}
