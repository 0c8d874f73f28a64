package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func slogRecord(t *testing.T, handlerLevel, adapterLevel slog.Level, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: handlerLevel})
	NewSlogAdapter(slog.New(handler), adapterLevel).Log(event)
	if buf.Len() == 0 {
		return nil
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("bad JSON %q: %v", buf.String(), err)
	}
	return rec
}

func group(t *testing.T, rec map[string]any, key string) map[string]any {
	t.Helper()
	g, ok := rec[key].(map[string]any)
	if !ok {
		t.Fatalf("record has no %q group: %v", key, rec)
	}
	return g
}

func TestSlogAdapterRequest(t *testing.T) {
	rtt := 12 * time.Millisecond
	rec := slogRecord(t, slog.LevelDebug, slog.LevelDebug, Event{
		SessionID: "session-123",
		Direction: DirectionIn,
		Layer:     LayerHTTP,
		Category:  CategoryMessage,
		Request:   &RequestEvent{Method: "GET", Path: "/rw/panel/opmode", StatusCode: 200, Duration: &rtt},
	})

	if rec["msg"] != "rws message" || rec["level"] != "DEBUG" {
		t.Errorf("msg/level = %v/%v", rec["msg"], rec["level"])
	}
	if rec["session"] != "session-123" || rec["layer"] != "HTTP" || rec["dir"] != "IN" {
		t.Errorf("common attrs = %v", rec)
	}
	if _, ok := rec["resource"]; ok {
		t.Error("empty resource should be omitted")
	}
	req := group(t, rec, "request")
	if req["path"] != "/rw/panel/opmode" || req["status"] != float64(200) || req["rtt"] != float64(rtt) {
		t.Errorf("request group = %v", req)
	}
}

func TestSlogAdapterPayloads(t *testing.T) {
	code := 403
	tests := []struct {
		name  string
		event Event
		key   string
		want  map[string]any
	}{
		{
			name:  "push",
			event: Event{Category: CategoryMessage, Push: &PushEvent{Class: "rap-data-ev", Value: "7", Sequence: 3}},
			key:   "push",
			want:  map[string]any{"class": "rap-data-ev", "value": "7", "seq": float64(3)},
		},
		{
			name:  "state",
			event: Event{Category: CategoryState, StateChange: &StateChangeEvent{Entity: StateEntityMastership, Name: "edit", OldState: "FREE", NewState: "REQUESTING"}},
			key:   "state",
			want:  map[string]any{"entity": "MASTERSHIP", "from": "FREE", "to": "REQUESTING", "name": "edit"},
		},
		{
			name:  "error",
			event: Event{Category: CategoryError, Error: &ErrorEventData{Layer: LayerHTTP, Message: "forbidden", Code: &code, Context: "request mastership"}},
			key:   "error",
			want:  map[string]any{"layer": "HTTP", "msg": "forbidden", "code": float64(403), "op": "request mastership"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := group(t, slogRecord(t, slog.LevelDebug, slog.LevelInfo, tt.event), tt.key)
			for k, v := range tt.want {
				if g[k] != v {
					t.Errorf("%s.%s = %v, want %v", tt.key, k, g[k], v)
				}
			}
			if len(g) != len(tt.want) {
				t.Errorf("%s group = %v, want %d keys", tt.key, g, len(tt.want))
			}
		})
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	rec := slogRecord(t, slog.LevelInfo, slog.LevelDebug, Event{Push: &PushEvent{Class: "rap-data-ev"}})
	if rec != nil {
		t.Errorf("debug event logged by info handler: %v", rec)
	}
}
