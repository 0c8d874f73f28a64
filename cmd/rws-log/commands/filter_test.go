package commands

import (
	"path/filepath"
	"testing"

	"github.com/rws-panel/rws-go/pkg/log"
)

func TestRunFilter(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	tests := []struct {
		name string
		sel  Selection
		want []log.Category
	}{
		{"everything", Selection{}, []log.Category{log.CategoryMessage, log.CategoryMessage, log.CategoryMessage, log.CategoryState, log.CategoryError}},
		{"by resource", Selection{Resource: "/rw/rapid"}, []log.Category{log.CategoryMessage, log.CategoryMessage, log.CategoryMessage}},
		{"by time window", Selection{Since: "2026-03-04T09:30:01Z", Until: "2026-03-04T09:30:03Z"}, []log.Category{log.CategoryMessage, log.CategoryState}},
		{"by session", Selection{Session: "someone-else"}, nil},
		{"errors only", Selection{Category: "error", Direction: "in"}, []log.Category{log.CategoryError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.rlog")
			n, err := RunFilter(path, out, tt.sel)
			if err != nil {
				t.Fatalf("RunFilter: %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("copied %d events, want %d", n, len(tt.want))
			}
			got := readCapture(t, out)
			if len(got) != len(tt.want) {
				t.Fatalf("output holds %d events, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Category != tt.want[i] {
					t.Errorf("event %d category = %v, want %v", i, e.Category, tt.want[i])
				}
			}
		})
	}
}

func TestRunFilterBadSelection(t *testing.T) {
	path := writeCapture(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.rlog")

	if _, err := RunFilter(path, out, Selection{Layer: "wire"}); err == nil {
		t.Error("expected error for bad layer")
	}
	if _, err := RunFilter(path, filepath.Join(t.TempDir(), "missing", "out.rlog"), Selection{}); err == nil {
		t.Error("expected error for unwritable output")
	}
}
