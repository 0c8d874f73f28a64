package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.rlog")
	w, err := log.OpenCapture(path)
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	w.Log(log.Event{Timestamp: ts, SessionID: "s1", Layer: log.LayerSubscription,
		Resource: "/rw/iosystem/signals/DO1;state", Push: &log.PushEvent{Class: "ios-signalstate-ev", Value: "1"}})
	w.Log(log.Event{Timestamp: ts.Add(time.Second), SessionID: "s1", Layer: log.LayerHTTP,
		Request: &log.RequestEvent{Method: "GET", Path: "/rw/panel/opmode"}})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunDispatch(t *testing.T) {
	path := writeCapture(t)

	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{name: "no args", args: nil, code: 2, stderr: "Usage: rws-log"},
		{name: "help", args: []string{"help"}, code: 0, stdout: "filter"},
		{name: "unknown", args: []string{"replay"}, code: 2, stderr: `unknown command "replay"`},
		{name: "view", args: []string{"view", "-layer", "subscription", path}, code: 0, stdout: "push ios-signalstate-ev"},
		{name: "view bad layer", args: []string{"view", "-layer", "wire", path}, code: 1, stderr: "invalid layer"},
		{name: "view missing path", args: []string{"view"}, code: 2, stderr: "exactly one capture file"},
		{name: "export", args: []string{"export", "-format", "csv", path}, code: 0, stdout: "time,session,direction"},
		{name: "filter needs output", args: []string{"filter", path}, code: 2, stderr: "-o is required"},
		{name: "stats", args: []string{"stats", path}, code: 0, stdout: "Sessions (1)"},
		{name: "flag help", args: []string{"stats", "-h"}, code: 2, stderr: "Usage: rws-log stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.code, stderr.String())
			}
			if tt.stdout != "" && !strings.Contains(stdout.String(), tt.stdout) {
				t.Errorf("stdout missing %q:\n%s", tt.stdout, stdout.String())
			}
			if tt.stderr != "" && !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr missing %q:\n%s", tt.stderr, stderr.String())
			}
		})
	}
}

func TestRunFilterWritesCapture(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "http.rlog")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"filter", "-layer", "http", "-o", out, path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "kept 1 events") {
		t.Errorf("stdout = %q", stdout.String())
	}

	r, err := log.OpenFile(out, log.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Request == nil {
		t.Errorf("filtered capture = %+v", events)
	}
}
