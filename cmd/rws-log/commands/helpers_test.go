package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

const testSession = "0f1e2d3c-aaaa-bbbb-cccc-000000000001"

const n1Data = "/rw/rapid/symbol/RAPID/T_ROB1/MainModule/n1/data"

func writeCapture(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.rlog")
	w, err := log.OpenCapture(path)
	if err != nil {
		t.Fatalf("OpenCapture: %v", err)
	}
	for _, e := range events {
		w.Log(e)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func readCapture(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.OpenFile(path, log.Filter{})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return events
}

// sampleEvents is a short panel session: a variable write with its
// response, the resulting push, a mastership transition and a failure.
func sampleEvents() []log.Event {
	ts := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	rtt := 12 * time.Millisecond
	code := 403
	return []log.Event{
		{
			Timestamp:  ts,
			SessionID:  testSession,
			Controller: "http://192.168.125.1",
			Direction:  log.DirectionOut,
			Layer:      log.LayerHTTP,
			Category:   log.CategoryMessage,
			Resource:   n1Data,
			Request:    &log.RequestEvent{Method: "POST", Path: n1Data, Body: "value=5"},
		},
		{
			Timestamp: ts.Add(rtt),
			SessionID: testSession,
			Direction: log.DirectionIn,
			Layer:     log.LayerHTTP,
			Category:  log.CategoryMessage,
			Resource:  n1Data,
			Request:   &log.RequestEvent{Method: "POST", Path: n1Data, StatusCode: 204, Duration: &rtt},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: testSession,
			Direction: log.DirectionIn,
			Layer:     log.LayerSubscription,
			Category:  log.CategoryMessage,
			Resource:  n1Data,
			Push:      &log.PushEvent{Class: "rap-value-ev", Value: "7", Sequence: 3},
		},
		{
			Timestamp:   ts.Add(2 * time.Second),
			SessionID:   testSession,
			Direction:   log.DirectionOut,
			Layer:       log.LayerCoordination,
			Category:    log.CategoryState,
			Resource:    "edit",
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityMastership, Name: "edit", OldState: "REQUESTING", NewState: "HELD"},
		},
		{
			Timestamp: ts.Add(3 * time.Second),
			SessionID: testSession,
			Direction: log.DirectionIn,
			Layer:     log.LayerHTTP,
			Category:  log.CategoryError,
			Resource:  "motion",
			Error:     &log.ErrorEventData{Layer: log.LayerHTTP, Message: "forbidden", Code: &code, Context: "request mastership"},
		},
	}
}
