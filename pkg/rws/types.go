package rws

import (
	"context"
	"strconv"
	"strings"

	"github.com/rws-panel/rws-go/pkg/rapid"
)

// Domain is a mastership domain.
type Domain string

// Mastership domains.
const (
	DomainEdit   Domain = "edit"
	DomainMotion Domain = "motion"
)

// OperatingMode is the controller's panel operating mode.
type OperatingMode string

// Operating modes.
const (
	ModeInit          OperatingMode = "INIT"
	ModeAuto          OperatingMode = "AUTO"
	ModeManualReduced OperatingMode = "MANR"
	ModeManualFull    OperatingMode = "MANF"
	ModeAutoChange    OperatingMode = "AUTO_CH"
	ModeManualFullCh  OperatingMode = "MANF_CH"
	ModeUndefined     OperatingMode = "UNDEF"
)

// IsAuto reports whether the controller runs in automatic mode.
func (m OperatingMode) IsAuto() bool {
	return m == ModeAuto || m == ModeAutoChange
}

// MastershipHolder describes who holds a mastership domain.
type MastershipHolder string

// Mastership holders.
const (
	HolderNone     MastershipHolder = "nomaster"
	HolderLocal    MastershipHolder = "local"
	HolderRemote   MastershipHolder = "remote"
	HolderInternal MastershipHolder = "internal"
)

// MastershipStatus is the controller's view of one domain.
type MastershipStatus struct {
	Holder   MastershipHolder
	HeldByMe bool
}

// RMMPPrivilege is the state of a remote-access privilege request.
type RMMPPrivilege string

// RMMP privileges.
const (
	RMMPNone    RMMPPrivilege = "none"
	RMMPPending RMMPPrivilege = "pending"
	RMMPModify  RMMPPrivilege = "modify"
	RMMPExec    RMMPPrivilege = "exec"
	RMMPDenied  RMMPPrivilege = "denied"
)

// RMMPState is the result of polling a remote-access request.
type RMMPState struct {
	Privilege RMMPPrivilege
	HeldByMe  bool
}

// Granted reports whether write access has been granted to this client.
func (s RMMPState) Granted() bool {
	return s.HeldByMe && (s.Privilege == RMMPModify || s.Privilege == RMMPExec)
}

// Symbol identifies a RAPID symbol in a task module.
type Symbol struct {
	Task   string
	Module string
	Name   string
}

// Path returns the controller symbol path (RAPID/task/module/name).
func (s Symbol) Path() string {
	return "RAPID/" + s.Task + "/" + s.Module + "/" + s.Name
}

func (s Symbol) String() string { return s.Path() }

// SignalRef identifies an I/O signal. Network and Device may be empty for
// signals addressed by name only.
type SignalRef struct {
	Network string
	Device  string
	Name    string
}

// Path returns the signal path below /rw/iosystem/signals.
func (r SignalRef) Path() string {
	if r.Network == "" && r.Device == "" {
		return r.Name
	}
	return r.Network + "/" + r.Device + "/" + r.Name
}

func (r SignalRef) String() string { return r.Path() }

// Properties describes a RAPID symbol's declaration.
type Properties struct {
	DataType   string
	SymbolType string
	Dimensions []int
	Scope      string
	ReadOnly   bool
}

// IsArray reports whether the symbol is declared as an array.
func (p Properties) IsArray() bool { return len(p.Dimensions) > 0 }

// parseDimensions parses the controller's space separated "dim" field.
func parseDimensions(s string) []int {
	var dims []int
	for _, f := range strings.Fields(s) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		dims = append(dims, n)
	}
	return dims
}

// SignalType is the I/O signal type.
type SignalType string

// Signal types.
const (
	SignalDI SignalType = "DI"
	SignalDO SignalType = "DO"
	SignalAI SignalType = "AI"
	SignalAO SignalType = "AO"
	SignalGI SignalType = "GI"
	SignalGO SignalType = "GO"
)

// SignalInfo describes an I/O signal and its current value.
type SignalInfo struct {
	Name      string
	Type      SignalType
	Value     string
	Simulated bool
}

// ChangeFunc receives the raw value after a pushed change.
type ChangeFunc func(raw string)

// Controller is the entry point to a robot controller.
type Controller interface {
	Data(sym Symbol) DataHandle
	Signal(ref SignalRef) SignalHandle
	Mastership() MastershipAPI
	Motion() MotionAPI
}

// DataHandle is a RAPID symbol on the controller.
type DataHandle interface {
	Symbol() Symbol
	Properties(ctx context.Context) (Properties, error)
	Value(ctx context.Context) (string, error)
	SetValue(ctx context.Context, v any) error
	SetRawValue(ctx context.Context, literal string) error
	Subscribe(ctx context.Context, raiseInitial bool) error
	Unsubscribe(ctx context.Context) error
	OnChanged(fn ChangeFunc)
}

// SignalHandle is an I/O signal on the controller.
type SignalHandle interface {
	Ref() SignalRef
	Info(ctx context.Context) (SignalInfo, error)
	Value(ctx context.Context) (string, error)
	SetValue(ctx context.Context, lvalue string) error
	Subscribe(ctx context.Context, raiseInitial bool) error
	Unsubscribe(ctx context.Context) error
	OnChanged(fn ChangeFunc)
}

// MastershipAPI manages mastership domains and remote access.
type MastershipAPI interface {
	Request(ctx context.Context, domain Domain) error
	Release(ctx context.Context, domain Domain) error
	Status(ctx context.Context, domain Domain) (MastershipStatus, error)
	OperatingMode(ctx context.Context) (OperatingMode, error)
	RequestRMMP(ctx context.Context) error
	RMMPState(ctx context.Context) (RMMPState, error)
	CancelRMMP(ctx context.Context) error
}

// JogCommand is one jog request. Axes are speed ratios in -100..100.
type JogCommand struct {
	Axes        [6]int
	Mechunit    string
	CoordSystem string
	IncMode     string
	ChangeCount int
}

// CartesianQuery asks for the joint solution of a robtarget.
type CartesianQuery struct {
	Target  rapid.RobTarget
	Current rapid.JointTarget
	Tool    string
	WObj    string
}

// MotionAPI exposes motion system operations.
type MotionAPI interface {
	ChangeCount(ctx context.Context) (int, error)
	Jog(ctx context.Context, cmd JogCommand) error
	JointsFromCartesian(ctx context.Context, mechunit string, q CartesianQuery) (rapid.JointTarget, error)
}
