package subscription

import "github.com/rws-panel/rws-go/pkg/rws"

// Key identifies a shared subscription. String must be unique across all
// key types; it is also used as the bus topic.
type Key interface {
	String() string
}

// VariableKey identifies a RAPID variable.
type VariableKey struct {
	Task   string
	Module string
	Name   string
}

func (k VariableKey) String() string {
	return "rapid:" + k.Task + "/" + k.Module + "/" + k.Name
}

// Symbol returns the controller symbol for the key.
func (k VariableKey) Symbol() rws.Symbol {
	return rws.Symbol{Task: k.Task, Module: k.Module, Name: k.Name}
}

// SignalKey identifies an I/O signal.
type SignalKey struct {
	Network string
	Device  string
	Name    string
}

func (k SignalKey) String() string {
	return "signal:" + k.Ref().Path()
}

// Ref returns the controller signal reference for the key.
func (k SignalKey) Ref() rws.SignalRef {
	return rws.SignalRef{Network: k.Network, Device: k.Device, Name: k.Name}
}
