// Package rwstest provides an in-memory controller for tests.
//
// The fake keeps symbol and signal values, counts every subscribe,
// unsubscribe and mastership call, and lets tests push value changes to
// subscribed handles. Push delivers synchronously on the calling goroutine.
package rwstest

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

type symbolState struct {
	props rws.Properties
	value string
}

type signalState struct {
	typ   rws.SignalType
	value string
}

// Controller is a fake rws.Controller.
type Controller struct {
	mu sync.Mutex

	symbols map[string]*symbolState
	signals map[string]*signalState

	subscribed   map[string][]*listeners
	subscribes   map[string]int
	unsubscribes map[string]int
	writes       map[string][]string
	properties   map[string]int

	subscribeErr  error
	subscribeGate chan struct{}

	mastership *Mastership
	motion     *Motion
}

// New creates an empty fake controller in manual reduced mode.
func New() *Controller {
	return &Controller{
		symbols:      make(map[string]*symbolState),
		signals:      make(map[string]*signalState),
		subscribed:   make(map[string][]*listeners),
		subscribes:   make(map[string]int),
		unsubscribes: make(map[string]int),
		writes:       make(map[string][]string),
		properties:   make(map[string]int),
		mastership:   newMastership(),
		motion:       &Motion{},
	}
}

// AddSymbol declares a RAPID symbol with an initial literal.
func (c *Controller) AddSymbol(sym rws.Symbol, dataType, value string, dims ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var d []int
	if len(dims) > 0 {
		d = dims
	}
	c.symbols[sym.Path()] = &symbolState{
		props: rws.Properties{DataType: dataType, SymbolType: "var", Dimensions: d, Scope: "global"},
		value: value,
	}
}

// AddSignal declares an I/O signal with an initial lvalue.
func (c *Controller) AddSignal(ref rws.SignalRef, typ rws.SignalType, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals[ref.Path()] = &signalState{typ: typ, value: value}
}

// FailSubscribe makes every following subscribe call return err (nil clears).
func (c *Controller) FailSubscribe(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// GateSubscribe makes subscribe calls block until the returned function is
// called.
func (c *Controller) GateSubscribe() (open func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.subscribeGate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.subscribeGate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Push sets a symbol's value and notifies every subscribed handle.
func (c *Controller) Push(sym rws.Symbol, value string) {
	c.mu.Lock()
	if st, ok := c.symbols[sym.Path()]; ok {
		st.value = value
	}
	targets := append([]*listeners(nil), c.subscribed["data:"+sym.Path()]...)
	c.mu.Unlock()

	for _, l := range targets {
		l.fire(value)
	}
}

// PushSignal sets a signal's value and notifies every subscribed handle.
func (c *Controller) PushSignal(ref rws.SignalRef, value string) {
	c.mu.Lock()
	if st, ok := c.signals[ref.Path()]; ok {
		st.value = value
	}
	targets := append([]*listeners(nil), c.subscribed["signal:"+ref.Path()]...)
	c.mu.Unlock()

	for _, l := range targets {
		l.fire(value)
	}
}

// SymbolValue returns the stored literal of a symbol.
func (c *Controller) SymbolValue(sym rws.Symbol) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.symbols[sym.Path()]; ok {
		return st.value
	}
	return ""
}

// Writes returns the literals written to a symbol or signal, in order.
func (c *Controller) Writes(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes[path]...)
}

// Subscribes returns how many subscribe calls reached the resource
// ("data:RAPID/T/M/N" or "signal:net/dev/name").
func (c *Controller) Subscribes(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes[resource]
}

// Unsubscribes returns how many unsubscribe calls reached the resource.
func (c *Controller) Unsubscribes(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribes[resource]
}

// PropertiesCalls returns how many times a symbol's properties were read.
func (c *Controller) PropertiesCalls(sym rws.Symbol) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties[sym.Path()]
}

// DataResource returns the counter key for a symbol.
func DataResource(sym rws.Symbol) string { return "data:" + sym.Path() }

// SignalResource returns the counter key for a signal.
func SignalResource(ref rws.SignalRef) string { return "signal:" + ref.Path() }

// Data implements rws.Controller.
func (c *Controller) Data(sym rws.Symbol) rws.DataHandle {
	return &dataHandle{c: c, sym: sym, l: &listeners{}}
}

// Signal implements rws.Controller.
func (c *Controller) Signal(ref rws.SignalRef) rws.SignalHandle {
	return &signalHandle{c: c, ref: ref, l: &listeners{}}
}

// Mastership implements rws.Controller.
func (c *Controller) Mastership() rws.MastershipAPI { return c.mastership }

// Motion implements rws.Controller.
func (c *Controller) Motion() rws.MotionAPI { return c.motion }

// FakeMastership returns the mastership fake for configuration.
func (c *Controller) FakeMastership() *Mastership { return c.mastership }

// FakeMotion returns the motion fake for configuration.
func (c *Controller) FakeMotion() *Motion { return c.motion }

func notFound(path string) error {
	return &rws.StatusError{StatusCode: http.StatusNotFound, Path: path, Message: "resource not found"}
}

func (c *Controller) subscribe(ctx context.Context, resource string, l *listeners) error {
	c.mu.Lock()
	gate := c.subscribeGate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribes[resource]++
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	for _, existing := range c.subscribed[resource] {
		if existing == l {
			return nil
		}
	}
	c.subscribed[resource] = append(c.subscribed[resource], l)
	return nil
}

func (c *Controller) unsubscribe(resource string, l *listeners) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribes[resource]++
	subs := c.subscribed[resource]
	for i, existing := range subs {
		if existing == l {
			c.subscribed[resource] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.subscribed[resource]) == 0 {
		delete(c.subscribed, resource)
	}
}

type listeners struct {
	mu  sync.Mutex
	fns []rws.ChangeFunc
}

func (l *listeners) add(fn rws.ChangeFunc) {
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *listeners) fire(raw string) {
	l.mu.Lock()
	fns := append([]rws.ChangeFunc(nil), l.fns...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

type dataHandle struct {
	c   *Controller
	sym rws.Symbol
	l   *listeners
}

func (h *dataHandle) Symbol() rws.Symbol { return h.sym }

func (h *dataHandle) state() (*symbolState, error) {
	st, ok := h.c.symbols[h.sym.Path()]
	if !ok {
		return nil, notFound(h.sym.Path())
	}
	return st, nil
}

func (h *dataHandle) Properties(ctx context.Context) (rws.Properties, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	h.c.properties[h.sym.Path()]++
	st, err := h.state()
	if err != nil {
		return rws.Properties{}, err
	}
	return st.props, nil
}

func (h *dataHandle) Value(ctx context.Context) (string, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	st, err := h.state()
	if err != nil {
		return "", err
	}
	return st.value, nil
}

func (h *dataHandle) SetValue(ctx context.Context, v any) error {
	lit, err := rws.FormatValue(v)
	if err != nil {
		return err
	}
	return h.SetRawValue(ctx, lit)
}

func (h *dataHandle) SetRawValue(ctx context.Context, literal string) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	st, err := h.state()
	if err != nil {
		return err
	}
	st.value = literal
	h.c.writes[h.sym.Path()] = append(h.c.writes[h.sym.Path()], literal)
	return nil
}

func (h *dataHandle) Subscribe(ctx context.Context, raiseInitial bool) error {
	if err := h.c.subscribe(ctx, DataResource(h.sym), h.l); err != nil {
		return err
	}
	if raiseInitial {
		v, err := h.Value(ctx)
		if err != nil {
			return err
		}
		h.l.fire(v)
	}
	return nil
}

func (h *dataHandle) Unsubscribe(ctx context.Context) error {
	h.c.unsubscribe(DataResource(h.sym), h.l)
	return nil
}

func (h *dataHandle) OnChanged(fn rws.ChangeFunc) {
	h.l.add(fn)
}

// ListenerCount reports how many OnChanged callbacks a handle carries.
func ListenerCount(h rws.DataHandle) int {
	if dh, ok := h.(*dataHandle); ok {
		return dh.l.count()
	}
	return -1
}

type signalHandle struct {
	c   *Controller
	ref rws.SignalRef
	l   *listeners
}

func (h *signalHandle) Ref() rws.SignalRef { return h.ref }

func (h *signalHandle) Info(ctx context.Context) (rws.SignalInfo, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	st, ok := h.c.signals[h.ref.Path()]
	if !ok {
		return rws.SignalInfo{}, notFound(h.ref.Path())
	}
	return rws.SignalInfo{Name: h.ref.Name, Type: st.typ, Value: st.value}, nil
}

func (h *signalHandle) Value(ctx context.Context) (string, error) {
	info, err := h.Info(ctx)
	return info.Value, err
}

func (h *signalHandle) SetValue(ctx context.Context, lvalue string) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	st, ok := h.c.signals[h.ref.Path()]
	if !ok {
		return notFound(h.ref.Path())
	}
	st.value = lvalue
	h.c.writes[h.ref.Path()] = append(h.c.writes[h.ref.Path()], lvalue)
	return nil
}

func (h *signalHandle) Subscribe(ctx context.Context, raiseInitial bool) error {
	if err := h.c.subscribe(ctx, SignalResource(h.ref), h.l); err != nil {
		return err
	}
	if raiseInitial {
		v, err := h.Value(ctx)
		if err != nil {
			return err
		}
		h.l.fire(v)
	}
	return nil
}

func (h *signalHandle) Unsubscribe(ctx context.Context) error {
	h.c.unsubscribe(SignalResource(h.ref), h.l)
	return nil
}

func (h *signalHandle) OnChanged(fn rws.ChangeFunc) {
	h.l.add(fn)
}

// Motion is a fake rws.MotionAPI.
type Motion struct {
	mu     sync.Mutex
	jogs   []rws.JogCommand
	JogErr error

	// Solve computes the joint solution; nil returns q.Current unchanged.
	Solve func(q rws.CartesianQuery) (rapid.JointTarget, error)
}

// ChangeCount implements rws.MotionAPI.
func (m *Motion) ChangeCount(ctx context.Context) (int, error) {
	return 1, nil
}

// Jog implements rws.MotionAPI.
func (m *Motion) Jog(ctx context.Context, cmd rws.JogCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.JogErr != nil {
		return m.JogErr
	}
	m.jogs = append(m.jogs, cmd)
	return nil
}

// Jogs returns the jog commands received so far.
func (m *Motion) Jogs() []rws.JogCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rws.JogCommand(nil), m.jogs...)
}

// JointsFromCartesian implements rws.MotionAPI.
func (m *Motion) JointsFromCartesian(ctx context.Context, mechunit string, q rws.CartesianQuery) (rapid.JointTarget, error) {
	if mechunit == "" {
		return rapid.JointTarget{}, errors.New("empty mechunit")
	}
	if m.Solve != nil {
		return m.Solve(q)
	}
	return q.Current, nil
}

var (
	_ rws.Controller   = (*Controller)(nil)
	_ rws.DataHandle   = (*dataHandle)(nil)
	_ rws.SignalHandle = (*signalHandle)(nil)
	_ rws.MotionAPI    = (*Motion)(nil)
)
