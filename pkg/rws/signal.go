package rws

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type signalHandle struct {
	c         *Client
	ref       SignalRef
	listeners listenerSet
}

func (h *signalHandle) Ref() SignalRef { return h.ref }

func (h *signalHandle) basePath() string {
	parts := strings.Split(h.ref.Path(), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/rw/iosystem/signals/" + strings.Join(parts, "/")
}

func (h *signalHandle) resource() string {
	return h.basePath() + ";state"
}

func (h *signalHandle) Info(ctx context.Context) (SignalInfo, error) {
	item, err := h.c.get(ctx, "get signal", h.basePath())
	if err != nil {
		return SignalInfo{}, err
	}
	name := item.str("name")
	if name == "" {
		name = h.ref.Name
	}
	return SignalInfo{
		Name:      name,
		Type:      SignalType(strings.ToUpper(item.str("type"))),
		Value:     item.str("lvalue"),
		Simulated: item.str("lstate") == "simulated",
	}, nil
}

func (h *signalHandle) Value(ctx context.Context) (string, error) {
	info, err := h.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.Value, nil
}

func (h *signalHandle) SetValue(ctx context.Context, lvalue string) error {
	_, err := h.c.do(ctx, "set signal", http.MethodPost, h.basePath()+"/set-value", url.Values{"lvalue": {lvalue}}, nil)
	return err
}

func (h *signalHandle) Subscribe(ctx context.Context, raiseInitial bool) error {
	mark := h.listeners.mark()
	err := h.c.Subscriber().Add(ctx, h.resource(), func(ctx context.Context, n Notification) {
		raw, ok := n.Values["lvalue"]
		if !ok {
			var err error
			if raw, err = h.Value(ctx); err != nil {
				h.c.debugLog("rws: refetch after push failed", "signal", h.ref.Path(), "error", err)
				return
			}
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
			h.c.debugLog("rws: initial value overtaken by push", "signal", h.ref.Path())
		}
	}
	return nil
}

func (h *signalHandle) Unsubscribe(ctx context.Context) error {
	return h.c.Subscriber().Remove(ctx, h.resource())
}

func (h *signalHandle) OnChanged(fn ChangeFunc) {
	h.listeners.add(fn)
}

// Compile-time interface satisfaction check.
var _ SignalHandle = (*signalHandle)(nil)
