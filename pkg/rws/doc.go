// Package rws is a client for the robot controller's Web Services interface.
//
// The controller exposes RAPID data, I/O signals, mastership and motion over
// HTTP (HAL+JSON responses, form-encoded writes) and pushes value changes over
// a websocket bound to a subscription group. This package adapts that wire
// protocol to the small set of interfaces the coordination layer consumes:
//
//	Controller   entry point, hands out handles
//	DataHandle   one RAPID symbol (Value, SetRawValue, Subscribe, OnChanged)
//	SignalHandle one I/O signal
//	MastershipAPI mastership domains, operating mode and RMMP
//	MotionAPI    jogging and kinematics helpers
//
// Client implements Controller. All push traffic for a client flows through a
// single Subscriber: one subscription group and one websocket. Events are
// dispatched on the websocket reader goroutine in the order the controller
// sends them. If the websocket drops, the Subscriber recreates the group with
// every resource that was subscribed and reconnects with exponential backoff.
//
// # Errors
//
// Network failures are returned as *TransportError. Responses with a 4xx or
// 5xx status are returned as *StatusError carrying the controller's own error
// code and message.
package rws
