package variable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// Change is the payload published on a variable's topic.
type Change struct {
	// Raw is the literal reported by the controller.
	Raw string

	// Value is Raw decoded by the variable's codec.
	Value any
}

// Option configures a Variable or Signal.
type Option func(*options)

type options struct {
	bus    *eventbus.Bus
	topic  string
	logger *slog.Logger
}

// WithBus publishes changes on topic of bus instead of a private bus.
func WithBus(bus *eventbus.Bus, topic string) Option {
	return func(o *options) {
		o.bus = bus
		o.topic = topic
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(defaultTopic string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = eventbus.New()
	}
	if o.topic == "" {
		o.topic = defaultTopic
	}
	return o
}

// Variable is a typed view over a RAPID data handle.
type Variable struct {
	handle rws.DataHandle
	props  rws.Properties
	codec  Codec

	bus    *eventbus.Bus
	topic  string
	logger *slog.Logger

	installOnce sync.Once
}

// New reads the symbol's properties and returns a Variable with the matching
// codec.
func New(ctx context.Context, handle rws.DataHandle, opts ...Option) (*Variable, error) {
	props, err := handle.Properties(ctx)
	if err != nil {
		return nil, fmt.Errorf("variable %s: properties: %w", handle.Symbol(), err)
	}
	return NewWithProperties(handle, props, opts...), nil
}

// NewWithProperties returns a Variable for already known properties.
func NewWithProperties(handle rws.DataHandle, props rws.Properties, opts ...Option) *Variable {
	o := buildOptions(handle.Symbol().Path(), opts)
	return &Variable{
		handle: handle,
		props:  props,
		codec:  NewCodec(props),
		bus:    o.bus,
		topic:  o.topic,
		logger: o.logger,
	}
}

// Symbol returns the variable's symbol.
func (v *Variable) Symbol() rws.Symbol { return v.handle.Symbol() }

// Properties returns the declared properties.
func (v *Variable) Properties() rws.Properties { return v.props }

// Kind returns the codec kind.
func (v *Variable) Kind() Kind { return v.codec.Kind() }

// Topic returns the bus topic changes are published on.
func (v *Variable) Topic() string { return v.topic }

// Decode decodes a controller literal with the variable's codec.
func (v *Variable) Decode(raw string) (any, error) {
	return v.codec.Decode(raw)
}

// RawValue reads the current literal from the controller.
func (v *Variable) RawValue(ctx context.Context) (string, error) {
	return v.handle.Value(ctx)
}

// Value reads and decodes the current value from the controller.
func (v *Variable) Value(ctx context.Context) (any, error) {
	raw, err := v.handle.Value(ctx)
	if err != nil {
		return nil, err
	}
	return v.codec.Decode(raw)
}

// SetValue encodes val and writes it to the controller.
func (v *Variable) SetValue(ctx context.Context, val any) error {
	lit, err := v.codec.Encode(val)
	if err != nil {
		return err
	}
	return v.handle.SetRawValue(ctx, lit)
}

// SetRawValue writes a literal without validation.
func (v *Variable) SetRawValue(ctx context.Context, literal string) error {
	return v.handle.SetRawValue(ctx, literal)
}

// SetElement replaces one element of a numeric array. The path holds one
// zero-based index per dimension, or fewer to replace a whole row.
func (v *Variable) SetElement(ctx context.Context, path []int, val any) error {
	if v.codec.Kind() != KindNumeric || !v.props.IsArray() {
		return fmt.Errorf("%w: %s", ErrNotIndexable, v.Symbol())
	}
	if _, isString := val.(string); isString || !rapid.IsNumeric(val) {
		return mismatch(KindNumeric, v.props.DataType, val, "element must be numeric")
	}

	current, err := v.Value(ctx)
	if err != nil {
		return err
	}
	elemLit, err := rapid.FormatNumeric(val)
	if err != nil {
		return mismatch(KindNumeric, v.props.DataType, val, err.Error())
	}
	elem, err := rapid.ParseNumeric(elemLit)
	if err != nil {
		return err
	}
	updated, err := rapid.SetElement(current, path, elem)
	if err != nil {
		return fmt.Errorf("%s: %w", v.Symbol(), err)
	}
	return v.SetValue(ctx, updated)
}

// OnChanged registers l for change notifications. It returns false if l is
// already registered.
func (v *Variable) OnChanged(l eventbus.Listener) bool {
	v.install()
	return v.bus.On(v.topic, l)
}

// RemoveListener unregisters l.
func (v *Variable) RemoveListener(l eventbus.Listener) bool {
	return v.bus.Remove(v.topic, l)
}

// Subscribe starts controller push notifications for the variable.
func (v *Variable) Subscribe(ctx context.Context, raiseInitial bool) error {
	v.install()
	return v.handle.Subscribe(ctx, raiseInitial)
}

// Unsubscribe stops controller push notifications.
func (v *Variable) Unsubscribe(ctx context.Context) error {
	return v.handle.Unsubscribe(ctx)
}

// install attaches the single handle listener that feeds the bus topic.
func (v *Variable) install() {
	v.installOnce.Do(func() {
		v.handle.OnChanged(func(raw string) {
			val, err := v.codec.Decode(raw)
			if err != nil {
				if v.logger != nil {
					v.logger.Warn("variable: undecodable push", "symbol", v.Symbol().Path(), "raw", raw, "error", err)
				}
				return
			}
			v.bus.Trigger(v.topic, Change{Raw: raw, Value: val})
		})
	})
}
