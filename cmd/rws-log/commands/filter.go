package commands

import (
	"fmt"

	"github.com/rws-panel/rws-go/pkg/log"
)

// RunFilter copies the selected events of a capture into a new capture at
// output and returns how many were copied.
func RunFilter(path, output string, sel Selection) (int, error) {
	r, err := sel.open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	out, err := log.OpenCapture(output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	n := 0
	for event, err := range r.All() {
		if err != nil {
			_ = out.Close()
			return n, fmt.Errorf("read capture: %w", err)
		}
		out.Log(event)
		n++
	}
	if err := out.Err(); err != nil {
		_ = out.Close()
		return n, fmt.Errorf("write output: %w", err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("write output: %w", err)
	}
	return n, nil
}
