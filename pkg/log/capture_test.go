package log

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func tempCapture(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "panel"+FileExtension)
}

func writeCapture(t *testing.T, path string, events ...Event) {
	t.Helper()
	w, err := OpenCapture(path)
	if err != nil {
		t.Fatalf("OpenCapture: %v", err)
	}
	for _, e := range events {
		w.Log(e)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func readCapture(t *testing.T, path string, f Filter) []Event {
	t.Helper()
	r, err := OpenFile(path, f)
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

func TestCaptureRoundTrip(t *testing.T) {
	path := tempCapture(t)
	ts := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)
	writeCapture(t, path,
		Event{Timestamp: ts, SessionID: "s1", Layer: LayerSubscription, Resource: "/rw/iosystem/signals/DO1;state",
			Push: &PushEvent{Class: "ios-signalstate-ev", Value: "1", Sequence: 4}},
		Event{Timestamp: ts.Add(time.Second), SessionID: "s1", Layer: LayerCoordination, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityMastership, Name: "edit", OldState: "FREE", NewState: "HELD"}},
	)

	events := readCapture(t, path, Filter{})
	if len(events) != 2 {
		t.Fatalf("read %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Equal(ts) || events[0].Push == nil || events[0].Push.Sequence != 4 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].StateChange == nil || events[1].StateChange.NewState != "HELD" {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestCaptureAppendsWithSingleHeader(t *testing.T) {
	path := tempCapture(t)
	writeCapture(t, path, Event{SessionID: "first"})
	writeCapture(t, path, Event{SessionID: "second"})

	events := readCapture(t, path, Filter{})
	if len(events) != 2 || events[0].SessionID != "first" || events[1].SessionID != "second" {
		t.Errorf("events = %+v", events)
	}
}

func TestCaptureHeader(t *testing.T) {
	path := tempCapture(t)
	before := time.Now().Add(-time.Second)
	writeCapture(t, path)

	r, err := OpenFile(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Created().Before(before) {
		t.Errorf("Created() = %v, want after %v", r.Created(), before)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next on empty capture = %v, want io.EOF", err)
	}
}

func TestCaptureWriterState(t *testing.T) {
	path := tempCapture(t)
	w, err := OpenCapture(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.Path() != path {
		t.Errorf("Path() = %q", w.Path())
	}

	w.Log(Event{})
	w.Log(Event{})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := len(readCapture(t, path, Filter{})); got != 2 {
		t.Errorf("flushed capture holds %d events, want 2", got)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	w.Log(Event{})
	if w.Written() != 2 || w.Err() != nil {
		t.Errorf("Written() = %d, Err() = %v after close", w.Written(), w.Err())
	}
	if err := w.Flush(); err != nil {
		t.Errorf("Flush after close = %v", err)
	}
}

func TestCaptureConcurrentWriters(t *testing.T) {
	path := tempCapture(t)
	w, err := OpenCapture(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				w.Log(Event{Layer: LayerHTTP, Request: &RequestEvent{Method: "GET", Path: "/rw/panel/opmode"}})
			}
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if got := len(readCapture(t, path, Filter{})); got != 200 {
		t.Errorf("read %d events, want 200", got)
	}
}

func TestReaderRejectsForeignFiles(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if _, err := NewReader(bytes.NewReader(nil), Filter{}); !errors.Is(err, ErrNotCapture) {
			t.Errorf("err = %v, want ErrNotCapture", err)
		}
	})

	t.Run("BareEvent", func(t *testing.T) {
		data, err := EncodeEvent(Event{SessionID: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewReader(bytes.NewReader(data), Filter{}); !errors.Is(err, ErrNotCapture) {
			t.Errorf("err = %v, want ErrNotCapture", err)
		}
	})

	t.Run("NewerVersion", func(t *testing.T) {
		data, err := encMode.Marshal(fileHeader{Magic: captureMagic, Version: captureVersion + 1})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewReader(bytes.NewReader(data), Filter{}); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("err = %v, want ErrUnsupportedVersion", err)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := OpenFile(filepath.Join(t.TempDir(), "nope.rlog"), Filter{}); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want os.ErrNotExist", err)
		}
	})
}

func TestReaderTruncatedTail(t *testing.T) {
	path := tempCapture(t)
	writeCapture(t, path, Event{SessionID: "whole"}, Event{SessionID: "cut"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(bytes.NewReader(data[:len(data)-3]), Filter{})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	var last error
	for e, err := range r.All() {
		if err != nil {
			last = err
			break
		}
		got = append(got, e.SessionID)
	}
	if len(got) != 1 || got[0] != "whole" {
		t.Errorf("events before truncation = %v", got)
	}
	if !errors.Is(last, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", last)
	}
}

func TestReaderAllStopsEarly(t *testing.T) {
	path := tempCapture(t)
	writeCapture(t, path, Event{SessionID: "a"}, Event{SessionID: "b"}, Event{SessionID: "c"})

	r, err := OpenFile(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for e, err := range r.All() {
		if err != nil || e.SessionID != "a" {
			t.Fatalf("first = %+v, %v", e, err)
		}
		break
	}
	rest, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 || rest[0].SessionID != "b" {
		t.Errorf("remaining = %+v", rest)
	}
}
