package log

import (
	"time"
)

// Event is one captured protocol occurrence. Exactly one payload pointer is
// set. Keys are small integers to keep captures compact.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID is the Recorder's UUID; one per client.
	SessionID string    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Controller is the base URL of the controller.
	Controller string `cbor:"6,keyasint,omitempty"`

	// Resource is the controller path, registry key or mastership domain
	// the event concerns.
	Resource string `cbor:"7,keyasint,omitempty"`

	Request     *RequestEvent     `cbor:"10,keyasint,omitempty"`
	Push        *PushEvent        `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction is the flow of a message relative to the client.
type Direction uint8

const (
	DirectionIn  Direction = 0 // from the controller
	DirectionOut Direction = 1 // to the controller
)

// Layer is where an event was captured.
type Layer uint8

const (
	LayerHTTP         Layer = 0 // REST request/response
	LayerSubscription Layer = 1 // websocket push channel
	LayerCoordination Layer = 2 // registries, mastership, supervisor
)

// Category classifies an event by payload.
type Category uint8

const (
	CategoryMessage Category = 0 // Request or Push
	CategoryState   Category = 1 // StateChange
	CategoryError   Category = 2 // Error
)

var (
	directionNames = []string{"IN", "OUT"}
	layerNames     = []string{"HTTP", "SUBSCRIPTION", "COORDINATION"}
	categoryNames  = []string{"MESSAGE", "STATE", "ERROR"}
	entityNames    = []string{"MASTERSHIP", "SUBSCRIPTION", "REMOTE_ACCESS", "CHANNEL"}
)

func enumName(names []string, i uint8) string {
	if int(i) < len(names) {
		return names[i]
	}
	return "UNKNOWN"
}

func (d Direction) String() string { return enumName(directionNames, uint8(d)) }
func (l Layer) String() string     { return enumName(layerNames, uint8(l)) }
func (c Category) String() string  { return enumName(categoryNames, uint8(c)) }

// RequestEvent captures one HTTP exchange with the controller.
type RequestEvent struct {
	// Method is the HTTP method.
	Method string `cbor:"1,keyasint"`

	// Path is the request path including query.
	Path string `cbor:"2,keyasint"`

	// StatusCode is the response status (0 for outgoing requests or
	// transport failures).
	StatusCode int `cbor:"3,keyasint,omitempty"`

	// Body is the form body sent, if any.
	Body string `cbor:"4,keyasint,omitempty"`

	// Duration is the round-trip time (responses only).
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`
}

// PushEvent captures a value-change notification from the controller.
type PushEvent struct {
	// Class is the event class reported by the controller
	// (e.g. "rap-data-ev", "ios-signalstate-ev").
	Class string `cbor:"1,keyasint"`

	// Value is the reported or refetched value.
	Value string `cbor:"2,keyasint,omitempty"`

	// Sequence is the per-channel delivery sequence number.
	Sequence uint64 `cbor:"3,keyasint"`
}

// StateChangeEvent captures lifecycle transitions of coordinated entities.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// Name qualifies the entity (domain name, registry key, ...).
	Name string `cbor:"2,keyasint,omitempty"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"3,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"4,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// StateEntity is the kind of thing a StateChangeEvent describes.
type StateEntity uint8

const (
	StateEntityMastership   StateEntity = 0 // Name is the domain
	StateEntitySubscription StateEntity = 1 // Name is the registry key
	StateEntityRemoteAccess StateEntity = 2
	StateEntityChannel      StateEntity = 3 // the websocket push channel
)

func (s StateEntity) String() string { return enumName(entityNames, uint8(s)) }

// ErrorEventData describes a failure.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Code is the HTTP status, when there is one.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names the failing operation, e.g. "request mastership".
	Context string `cbor:"4,keyasint,omitempty"`
}
