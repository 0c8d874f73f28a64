package rws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rws-panel/rws-go/pkg/rapid"
)

// listenerSet is the set of change callbacks attached to a handle.
//
// Pushes and the raise-initial value are delivered under deliver, and the
// initial value is dropped once a push has overtaken it.
type listenerSet struct {
	mu  sync.Mutex
	fns []ChangeFunc

	deliver sync.Mutex
	pushes  uint64
}

// mark returns the number of pushes delivered so far.
func (s *listenerSet) mark() uint64 {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	return s.pushes
}

// push delivers a pushed value.
func (s *listenerSet) push(raw string) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	s.pushes++
	s.fire(raw)
}

// initial delivers a value fetched after mark unless a push was delivered
// in the meantime. It reports whether raw was delivered.
func (s *listenerSet) initial(mark uint64, raw string) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.pushes != mark {
		return false
	}
	s.fire(raw)
	return true
}

func (s *listenerSet) add(fn ChangeFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

func (s *listenerSet) fire(raw string) {
	s.mu.Lock()
	fns := make([]ChangeFunc, len(s.fns))
	copy(fns, s.fns)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}
}

type dataHandle struct {
	c         *Client
	sym       Symbol
	listeners listenerSet
}

func (h *dataHandle) Symbol() Symbol { return h.sym }

func (h *dataHandle) basePath() string {
	return "/rw/rapid/symbol/" + url.PathEscape("RAPID") + "/" +
		url.PathEscape(h.sym.Task) + "/" + url.PathEscape(h.sym.Module) + "/" + url.PathEscape(h.sym.Name)
}

func (h *dataHandle) resource() string {
	return h.basePath() + "/data;value"
}

func (h *dataHandle) Properties(ctx context.Context) (Properties, error) {
	item, err := h.c.get(ctx, "properties", h.basePath()+"/properties")
	if err != nil {
		return Properties{}, err
	}
	scope := "global"
	switch {
	case item.flag("local"):
		scope = "local"
	case item.flag("taskvar"):
		scope = "task"
	}
	return Properties{
		DataType:   item.str("dattyp"),
		SymbolType: item.str("symtyp"),
		Dimensions: parseDimensions(item.str("dim")),
		Scope:      scope,
		ReadOnly:   item.flag("ro"),
	}, nil
}

func (h *dataHandle) Value(ctx context.Context) (string, error) {
	item, err := h.c.get(ctx, "get value", h.basePath()+"/data")
	if err != nil {
		return "", err
	}
	return item.str("value"), nil
}

// SetValue formats v as a RAPID literal and writes it.
func (h *dataHandle) SetValue(ctx context.Context, v any) error {
	lit, err := FormatValue(v)
	if err != nil {
		return err
	}
	return h.SetRawValue(ctx, lit)
}

func (h *dataHandle) SetRawValue(ctx context.Context, literal string) error {
	_, err := h.c.do(ctx, "set value", http.MethodPost, h.basePath()+"/data", url.Values{"value": {literal}}, nil)
	return err
}

func (h *dataHandle) Subscribe(ctx context.Context, raiseInitial bool) error {
	mark := h.listeners.mark()
	err := h.c.Subscriber().Add(ctx, h.resource(), func(ctx context.Context, n Notification) {
		raw, err := h.Value(ctx)
		if err != nil {
			h.c.debugLog("rws: refetch after push failed", "symbol", h.sym.Path(), "error", err)
			return
		}
		n.record(raw)
		h.listeners.push(raw)
	})
	if err != nil {
		return err
	}
	if raiseInitial {
		raw, err := h.Value(ctx)
		if err != nil {
			return err
		}
		if !h.listeners.initial(mark, raw) {
			h.c.debugLog("rws: initial value overtaken by push", "symbol", h.sym.Path())
		}
	}
	return nil
}

func (h *dataHandle) Unsubscribe(ctx context.Context) error {
	return h.c.Subscriber().Remove(ctx, h.resource())
}

func (h *dataHandle) OnChanged(fn ChangeFunc) {
	h.listeners.add(fn)
}

// FormatValue converts a Go value to a RAPID literal. Strings are quoted;
// use SetRawValue to write a literal unchanged.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return rapid.FormatString(x), nil
	case bool:
		return rapid.FormatBool(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return rapid.FormatNumeric(v)
}

// Compile-time interface satisfaction check.
var _ DataHandle = (*dataHandle)(nil)
