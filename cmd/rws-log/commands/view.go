package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

const viewTimeLayout = "2006-01-02 15:04:05.000"

// RunView prints the selected events of a capture, one line each, and
// returns how many were printed.
func RunView(path string, sel Selection, w io.Writer) (int, error) {
	r, err := sel.open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for event, err := range r.All() {
		if err != nil {
			return n, fmt.Errorf("read capture: %w", err)
		}
		if _, err := fmt.Fprintln(w, viewLine(event)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func viewLine(e log.Event) string {
	return fmt.Sprintf("%s %-8s %-3s %-12s %s",
		e.Timestamp.UTC().Format(viewTimeLayout),
		shortSession(e.SessionID),
		e.Direction,
		e.Layer,
		summarize(e))
}

// summarize renders the payload of e in one line.
func summarize(e log.Event) string {
	switch {
	case e.Request != nil:
		req := e.Request
		if req.StatusCode == 0 && req.Duration == nil {
			if req.Body != "" {
				return fmt.Sprintf("%s %s body: %s", req.Method, req.Path, req.Body)
			}
			return req.Method + " " + req.Path
		}
		s := fmt.Sprintf("%s %s -> %d", req.Method, req.Path, req.StatusCode)
		if req.Duration != nil {
			s += " in " + formatDuration(*req.Duration)
		}
		return s

	case e.Push != nil:
		return fmt.Sprintf("push %s #%d %s = %s", e.Push.Class, e.Push.Sequence, e.Resource, e.Push.Value)

	case e.StateChange != nil:
		sc := e.StateChange
		name := sc.Name
		if name == "" {
			name = e.Resource
		}
		from := sc.OldState
		if from == "" {
			from = "-"
		}
		s := fmt.Sprintf("%s %s: %s -> %s", sc.Entity, name, from, sc.NewState)
		if sc.Reason != "" {
			s += " (" + sc.Reason + ")"
		}
		return s

	case e.Error != nil:
		er := e.Error
		s := fmt.Sprintf("error in %s", er.Layer)
		if er.Context != "" {
			s += " during " + er.Context
		}
		if e.Resource != "" {
			s += " [" + e.Resource + "]"
		}
		s += ": " + er.Message
		if er.Code != nil {
			s += fmt.Sprintf(" (code %d)", *er.Code)
		}
		return s
	}
	return "(no payload)"
}

// shortSession keeps the first UUID group of a session ID.
func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fus", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
