package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter mirrors protocol events into an operational slog.Logger,
// one record per event with the payload as a nested group.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter logs events to logger at level.
func NewSlogAdapter(logger *slog.Logger, level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: level}
}

// Log emits event unless the logger discards records at the adapter level.
func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, a.level) {
		return
	}

	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs,
		slog.String("session", event.SessionID),
		slog.String("dir", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	)
	if event.Resource != "" {
		attrs = append(attrs, slog.String("resource", event.Resource))
	}
	switch {
	case event.Request != nil:
		attrs = append(attrs, slog.Any("request", event.Request))
	case event.Push != nil:
		attrs = append(attrs, slog.Any("push", event.Push))
	case event.StateChange != nil:
		attrs = append(attrs, slog.Any("state", event.StateChange))
	case event.Error != nil:
		attrs = append(attrs, slog.Any("error", event.Error))
	}

	a.logger.LogAttrs(ctx, a.level, "rws "+strings.ToLower(event.Category.String()), attrs...)
}

func (r *RequestEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.Path),
	}
	if r.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", r.StatusCode))
	}
	if r.Duration != nil {
		attrs = append(attrs, slog.Duration("rtt", *r.Duration))
	}
	return slog.GroupValue(attrs...)
}

func (p *PushEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("class", p.Class),
		slog.String("value", p.Value),
		slog.Uint64("seq", p.Sequence),
	)
}

func (s *StateChangeEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("entity", s.Entity.String()),
		slog.String("from", s.OldState),
		slog.String("to", s.NewState),
	}
	if s.Name != "" {
		attrs = append(attrs, slog.String("name", s.Name))
	}
	if s.Reason != "" {
		attrs = append(attrs, slog.String("reason", s.Reason))
	}
	return slog.GroupValue(attrs...)
}

func (e *ErrorEventData) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("layer", e.Layer.String()),
		slog.String("msg", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("op", e.Context))
	}
	if e.Code != nil {
		attrs = append(attrs, slog.Int("code", *e.Code))
	}
	return slog.GroupValue(attrs...)
}
