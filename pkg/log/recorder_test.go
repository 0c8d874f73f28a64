package log

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecorderStampsEvents(t *testing.T) {
	s := &sink{}
	rec := NewRecorder(s, "https://192.168.125.1")

	if _, err := uuid.Parse(rec.SessionID()); err != nil {
		t.Fatalf("SessionID %q is not a UUID: %v", rec.SessionID(), err)
	}

	rec.Log(Event{Layer: LayerHTTP, Category: CategoryMessage})

	if len(s.events) != 1 {
		t.Fatalf("got %d events, want 1", len(s.events))
	}
	ev := s.events[0]
	if ev.SessionID != rec.SessionID() {
		t.Errorf("SessionID = %q, want %q", ev.SessionID, rec.SessionID())
	}
	if ev.Controller != "https://192.168.125.1" {
		t.Errorf("Controller = %q", ev.Controller)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestRecorderKeepsExplicitTimestamp(t *testing.T) {
	s := &sink{}
	rec := NewRecorder(s, "")
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec.Log(Event{Timestamp: ts})

	if !s.events[0].Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", s.events[0].Timestamp, ts)
	}
}

func TestRecorderStateChange(t *testing.T) {
	s := &sink{}
	rec := NewRecorder(s, "")

	rec.StateChange(StateEntityMastership, "edit", "FREE", "REQUESTING", "")

	sc := s.events[0].StateChange
	if sc == nil {
		t.Fatal("StateChange payload missing")
	}
	if sc.Entity != StateEntityMastership || sc.Name != "edit" || sc.NewState != "REQUESTING" {
		t.Errorf("unexpected state change: %+v", sc)
	}
	if s.events[0].Layer != LayerCoordination {
		t.Errorf("Layer = %v, want COORDINATION", s.events[0].Layer)
	}
}

func TestRecorderFailureIgnoresNil(t *testing.T) {
	s := &sink{}
	rec := NewRecorder(s, "")

	rec.Failure(LayerHTTP, "/rw/panel/opmode", "get opmode", nil)
	if len(s.events) != 0 {
		t.Fatalf("nil error produced %d events", len(s.events))
	}

	rec.Failure(LayerHTTP, "/rw/panel/opmode", "get opmode", errors.New("boom"))
	if len(s.events) != 1 || s.events[0].Error.Message != "boom" {
		t.Errorf("unexpected events: %+v", s.events)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Log(Event{})
	rec.StateChange(StateEntityChannel, "", "", "CONNECTED", "")
	rec.Failure(LayerSubscription, "", "", errors.New("x"))
	if rec.SessionID() != "" {
		t.Error("nil recorder should have empty session ID")
	}
}

func TestRecorderNilLogger(t *testing.T) {
	rec := NewRecorder(nil, "")
	rec.Log(Event{})
}
