package variable

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// Signal is a typed view over an I/O signal handle. Digital signals decode
// to bool, analog signals to float64 and group signals to uint64.
type Signal struct {
	handle rws.SignalHandle
	typ    rws.SignalType

	bus    *eventbus.Bus
	topic  string
	logger *slog.Logger

	installOnce sync.Once
}

// NewSignal reads the signal's type and returns a Signal.
func NewSignal(ctx context.Context, handle rws.SignalHandle, opts ...Option) (*Signal, error) {
	info, err := handle.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", handle.Ref(), err)
	}
	return NewSignalWithType(handle, info.Type, opts...)
}

// NewSignalWithType returns a Signal for a known signal type.
func NewSignalWithType(handle rws.SignalHandle, typ rws.SignalType, opts ...Option) (*Signal, error) {
	switch typ {
	case rws.SignalDI, rws.SignalDO, rws.SignalAI, rws.SignalAO, rws.SignalGI, rws.SignalGO:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, typ)
	}
	o := buildOptions(handle.Ref().Path(), opts)
	return &Signal{
		handle: handle,
		typ:    typ,
		bus:    o.bus,
		topic:  o.topic,
		logger: o.logger,
	}, nil
}

// Ref returns the signal reference.
func (s *Signal) Ref() rws.SignalRef { return s.handle.Ref() }

// Type returns the signal type.
func (s *Signal) Type() rws.SignalType { return s.typ }

// Topic returns the bus topic changes are published on.
func (s *Signal) Topic() string { return s.topic }

// Decode converts an lvalue to the signal's Go type.
func (s *Signal) Decode(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch s.typ {
	case rws.SignalDI, rws.SignalDO:
		return raw == "1", nil
	case rws.SignalAI, rws.SignalAO:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSignal, raw)
		}
		return f, nil
	default:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSignal, raw)
		}
		return n, nil
	}
}

// Encode converts v to an lvalue.
func (s *Signal) Encode(v any) (string, error) {
	dataType := string(s.typ)
	switch s.typ {
	case rws.SignalDI, rws.SignalDO:
		b, ok := v.(bool)
		if !ok {
			return "", mismatch(KindBool, dataType, v, "expected bool")
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case rws.SignalAI, rws.SignalAO:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", mismatch(KindNumeric, dataType, v, "expected number")
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	default:
		n, ok := toUint(v)
		if !ok {
			return "", mismatch(KindNumeric, dataType, v, "expected non-negative integer")
		}
		return strconv.FormatUint(n, 10), nil
	}
}

// Value reads and decodes the current value.
func (s *Signal) Value(ctx context.Context) (any, error) {
	raw, err := s.handle.Value(ctx)
	if err != nil {
		return nil, err
	}
	return s.Decode(raw)
}

// SetValue encodes v and writes it to the controller.
func (s *Signal) SetValue(ctx context.Context, v any) error {
	lvalue, err := s.Encode(v)
	if err != nil {
		return err
	}
	return s.handle.SetValue(ctx, lvalue)
}

// OnChanged registers l for change notifications.
func (s *Signal) OnChanged(l eventbus.Listener) bool {
	s.install()
	return s.bus.On(s.topic, l)
}

// RemoveListener unregisters l.
func (s *Signal) RemoveListener(l eventbus.Listener) bool {
	return s.bus.Remove(s.topic, l)
}

// Subscribe starts controller push notifications for the signal.
func (s *Signal) Subscribe(ctx context.Context, raiseInitial bool) error {
	s.install()
	return s.handle.Subscribe(ctx, raiseInitial)
}

// Unsubscribe stops controller push notifications.
func (s *Signal) Unsubscribe(ctx context.Context) error {
	return s.handle.Unsubscribe(ctx)
}

func (s *Signal) install() {
	s.installOnce.Do(func() {
		s.handle.OnChanged(func(raw string) {
			val, err := s.Decode(raw)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("signal: undecodable push", "signal", s.Ref().Path(), "raw", raw, "error", err)
				}
				return
			}
			s.bus.Trigger(s.topic, Change{Raw: raw, Value: val})
		})
	})
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	}
	return 0, false
}

func toUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case uint:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case int:
		return uint64(x), x >= 0
	case int64:
		return uint64(x), x >= 0
	case int32:
		return uint64(x), x >= 0
	}
	return 0, false
}
