package log

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestFilterMatches(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ev := Event{
		Timestamp: t0,
		SessionID: "s1",
		Direction: DirectionIn,
		Layer:     LayerSubscription,
		Category:  CategoryMessage,
		Resource:  "/rw/iosystem/signals/Local/DRV_1/DO1;state",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"session hit", Filter{SessionID: "s1"}, true},
		{"session miss", Filter{SessionID: "s2"}, false},
		{"direction", Filter{Direction: ptr(DirectionOut)}, false},
		{"layer", Filter{Layer: ptr(LayerSubscription)}, true},
		{"category", Filter{Category: ptr(CategoryError)}, false},
		{"start inclusive", Filter{TimeStart: ptr(t0)}, true},
		{"start after", Filter{TimeStart: ptr(t0.Add(time.Nanosecond))}, false},
		{"end exclusive", Filter{TimeEnd: ptr(t0)}, false},
		{"end after", Filter{TimeEnd: ptr(t0.Add(time.Second))}, true},
		{"resource prefix", Filter{ResourcePrefix: "/rw/iosystem"}, true},
		{"resource miss", Filter{ResourcePrefix: "/rw/rapid"}, false},
		{"all set", Filter{
			SessionID:      "s1",
			Direction:      ptr(DirectionIn),
			Layer:          ptr(LayerSubscription),
			Category:       ptr(CategoryMessage),
			TimeStart:      ptr(t0.Add(-time.Minute)),
			TimeEnd:        ptr(t0.Add(time.Minute)),
			ResourcePrefix: "/rw/iosystem/signals/Local",
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(ev); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilteredReader(t *testing.T) {
	path := tempCapture(t)
	writeCapture(t, path,
		Event{Layer: LayerHTTP, Resource: "/rw/panel/opmode"},
		Event{Layer: LayerSubscription, Resource: "/rw/rapid/symbol/RAPID/T_ROB1/MainModule/n1/data"},
		Event{Layer: LayerHTTP, Resource: "/rw/rapid/symbol/RAPID/T_ROB1/MainModule/n1/data"},
	)

	got := readCapture(t, path, Filter{Layer: ptr(LayerHTTP), ResourcePrefix: "/rw/rapid"})
	if len(got) != 1 || got[0].Layer != LayerHTTP || got[0].Resource != "/rw/rapid/symbol/RAPID/T_ROB1/MainModule/n1/data" {
		t.Errorf("filtered events = %+v", got)
	}
}
