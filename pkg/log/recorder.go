package log

import (
	"time"

	"github.com/google/uuid"
)

// Recorder stamps events with a session ID, controller address and
// timestamp before handing them to a Logger. A nil *Recorder discards
// everything, so components can hold one unconditionally.
type Recorder struct {
	logger     Logger
	sessionID  string
	controller string
}

// NewRecorder creates a Recorder with a fresh session ID.
// A nil logger yields a Recorder that drops all events.
func NewRecorder(logger Logger, controller string) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Recorder{
		logger:     logger,
		sessionID:  uuid.NewString(),
		controller: controller,
	}
}

// SessionID returns the session identifier stamped on every event.
func (r *Recorder) SessionID() string {
	if r == nil {
		return ""
	}
	return r.sessionID
}

// Log fills in the common fields and forwards the event.
func (r *Recorder) Log(event Event) {
	if r == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.SessionID = r.sessionID
	if event.Controller == "" {
		event.Controller = r.controller
	}
	r.logger.Log(event)
}

// StateChange records a coordination-layer transition.
func (r *Recorder) StateChange(entity StateEntity, name, oldState, newState, reason string) {
	r.Log(Event{
		Direction: DirectionOut,
		Layer:     LayerCoordination,
		Category:  CategoryState,
		Resource:  name,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			Name:     name,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Failure records an error at the given layer.
func (r *Recorder) Failure(layer Layer, resource, context string, err error) {
	if err == nil {
		return
	}
	r.Log(Event{
		Direction: DirectionIn,
		Layer:     layer,
		Category:  CategoryError,
		Resource:  resource,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
