package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

func TestCollectStats(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	s, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if s.Events != 5 {
		t.Errorf("Events = %d, want 5", s.Events)
	}
	if s.ByLayer[log.LayerHTTP] != 3 || s.ByCategory[log.CategoryError] != 1 {
		t.Errorf("ByLayer = %v, ByCategory = %v", s.ByLayer, s.ByCategory)
	}
	if s.ByStatus[204] != 1 || s.Responses != 1 || s.MeanRTT() != 12*time.Millisecond {
		t.Errorf("HTTP stats = %v, %d responses, mean %v", s.ByStatus, s.Responses, s.MeanRTT())
	}
	if s.Pushes[n1Data] != 1 {
		t.Errorf("Pushes = %v", s.Pushes)
	}
	if d := s.Mastership["edit"]; d == nil || d.Transitions != 1 || d.Last != "HELD" {
		t.Errorf("Mastership = %v", s.Mastership)
	}
	if s.Failures["request mastership"] != 1 {
		t.Errorf("Failures = %v", s.Failures)
	}

	sess := s.Sessions[testSession]
	if sess == nil {
		t.Fatal("session missing")
	}
	if sess.Events != 5 || sess.Pushes != 1 || sess.Controller != "http://192.168.125.1" {
		t.Errorf("session = %+v", sess)
	}
	if got := sess.Last.Sub(sess.First); got != 3*time.Second {
		t.Errorf("session span = %v", got)
	}
}

func TestRunStatsOutput(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Capture",
		"events",
		"2026-03-04T09:30:00Z .. 2026-03-04T09:30:03Z (3s)",
		"HTTP 3, SUBSCRIPTION 1, COORDINATION 1",
		"mean 12.0ms, max 12.0ms over 1 responses",
		"204",
		n1Data,
		"1 transitions, last HELD",
		"request mastership",
		"Sessions (1)",
		"0f1e2d3c",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunStatsEmptyCapture(t *testing.T) {
	path := writeCapture(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Sessions (0)") || strings.Contains(out, "span") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestByCountDesc(t *testing.T) {
	got := byCountDesc(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1})
	want := []string{"c", "a", "b", "d"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("byCountDesc = %v, want %v", got, want)
	}
}
