package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

// ExportFormats lists the formats RunExport accepts.
var ExportFormats = []string{"jsonl", "csv"}

// record is the flat, format-neutral form of an event.
type record struct {
	Time       time.Time `json:"time"`
	Session    string    `json:"session"`
	Controller string    `json:"controller,omitempty"`
	Direction  string    `json:"direction"`
	Layer      string    `json:"layer"`
	Category   string    `json:"category"`
	Resource   string    `json:"resource,omitempty"`

	// Kind is request, response, push, state, error or empty.
	Kind string `json:"kind,omitempty"`

	// Detail names the operation: method and path, push class, state
	// entity, or the failing operation.
	Detail string `json:"detail,omitempty"`

	// Status is the HTTP status, the new state, or the error code.
	Status string `json:"status,omitempty"`

	// Value is the request body, pushed value, previous state, or error
	// message.
	Value string `json:"value,omitempty"`

	Sequence   uint64   `json:"seq,omitempty"`
	DurationMS *float64 `json:"duration_ms,omitempty"`
}

var csvHeader = []string{
	"time", "session", "direction", "layer", "category", "resource",
	"kind", "detail", "status", "value", "duration_ms",
}

func toRecord(e log.Event) record {
	r := record{
		Time:       e.Timestamp.UTC(),
		Session:    e.SessionID,
		Controller: e.Controller,
		Direction:  e.Direction.String(),
		Layer:      e.Layer.String(),
		Category:   e.Category.String(),
		Resource:   e.Resource,
	}
	switch {
	case e.Request != nil:
		req := e.Request
		r.Kind = "request"
		r.Detail = req.Method + " " + req.Path
		r.Value = req.Body
		if req.StatusCode != 0 {
			r.Kind = "response"
			r.Status = strconv.Itoa(req.StatusCode)
		}
		if req.Duration != nil {
			ms := float64(*req.Duration) / float64(time.Millisecond)
			r.DurationMS = &ms
		}
	case e.Push != nil:
		r.Kind = "push"
		r.Detail = e.Push.Class
		r.Value = e.Push.Value
		r.Sequence = e.Push.Sequence
	case e.StateChange != nil:
		sc := e.StateChange
		r.Kind = "state"
		r.Detail = sc.Entity.String()
		if sc.Name != "" {
			r.Detail += " " + sc.Name
		}
		r.Status = sc.NewState
		r.Value = sc.OldState
	case e.Error != nil:
		r.Kind = "error"
		r.Detail = e.Error.Context
		r.Value = e.Error.Message
		if e.Error.Code != nil {
			r.Status = strconv.Itoa(*e.Error.Code)
		}
	}
	return r
}

func (r record) csvRow() []string {
	duration := ""
	if r.DurationMS != nil {
		duration = strconv.FormatFloat(*r.DurationMS, 'f', 3, 64)
	}
	return []string{
		r.Time.Format(time.RFC3339Nano), r.Session, r.Direction, r.Layer, r.Category, r.Resource,
		r.Kind, r.Detail, r.Status, r.Value, duration,
	}
}

// RunExport writes the selected events of a capture to w as JSON lines or
// CSV and returns how many were written.
func RunExport(path, format string, sel Selection, w io.Writer) (int, error) {
	r, err := sel.open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var write func(record) error
	var finish func() error
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		write = func(rec record) error { return enc.Encode(rec) }
		finish = func() error { return nil }
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return 0, err
		}
		write = func(rec record) error { return cw.Write(rec.csvRow()) }
		finish = func() error {
			cw.Flush()
			return cw.Error()
		}
	default:
		return 0, fmt.Errorf("unknown format %q (want one of %v)", format, ExportFormats)
	}

	n := 0
	for event, err := range r.All() {
		if err != nil {
			return n, fmt.Errorf("read capture: %w", err)
		}
		if err := write(toRecord(event)); err != nil {
			return n, fmt.Errorf("write %s: %w", format, err)
		}
		n++
	}
	return n, finish()
}
