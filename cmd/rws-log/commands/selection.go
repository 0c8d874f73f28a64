// Package commands implements the rws-log subcommands.
package commands

import (
	"flag"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

// Selection holds the event selection flags shared by view, export and
// filter. Empty fields select everything.
type Selection struct {
	Session   string
	Resource  string
	Since     string
	Until     string
	Layer     string
	Direction string
	Category  string
}

// Register binds the selection to flags on fs.
func (s *Selection) Register(fs *flag.FlagSet) {
	fs.StringVar(&s.Session, "session", "", "Only events of this session ID")
	fs.StringVar(&s.Resource, "resource", "", "Only events whose resource starts with this path")
	fs.StringVar(&s.Since, "since", "", "Only events at or after this RFC 3339 time")
	fs.StringVar(&s.Until, "until", "", "Only events before this RFC 3339 time")
	fs.StringVar(&s.Layer, "layer", "", "Only this layer (http, subscription, coordination)")
	fs.StringVar(&s.Direction, "direction", "", "Only this direction (in, out)")
	fs.StringVar(&s.Category, "category", "", "Only this category (message, state, error)")
}

var (
	layerNames = map[string]log.Layer{
		"http":         log.LayerHTTP,
		"subscription": log.LayerSubscription,
		"coordination": log.LayerCoordination,
	}
	directionNames = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
	categoryNames = map[string]log.Category{
		"message": log.CategoryMessage,
		"state":   log.CategoryState,
		"error":   log.CategoryError,
	}
)

// Filter converts the selection into a capture filter.
func (s Selection) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: s.Session, ResourcePrefix: s.Resource}

	var err error
	if f.TimeStart, err = parseTime("since", s.Since); err != nil {
		return log.Filter{}, err
	}
	if f.TimeEnd, err = parseTime("until", s.Until); err != nil {
		return log.Filter{}, err
	}
	if f.Layer, err = lookup("layer", s.Layer, layerNames); err != nil {
		return log.Filter{}, err
	}
	if f.Direction, err = lookup("direction", s.Direction, directionNames); err != nil {
		return log.Filter{}, err
	}
	if f.Category, err = lookup("category", s.Category, categoryNames); err != nil {
		return log.Filter{}, err
	}
	return f, nil
}

func (s Selection) open(path string) (*log.Reader, error) {
	filter, err := s.Filter()
	if err != nil {
		return nil, err
	}
	r, err := log.OpenFile(path, filter)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return r, nil
}

func parseTime(flagName, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s %q: want RFC 3339, e.g. 2026-03-04T09:30:00Z", flagName, value)
	}
	return &t, nil
}

func lookup[T any](kind, value string, names map[string]T) (*T, error) {
	if value == "" {
		return nil, nil
	}
	v, ok := names[strings.ToLower(value)]
	if !ok {
		valid := slices.Sorted(maps.Keys(names))
		return nil, fmt.Errorf("invalid %s %q (want one of %s)", kind, value, strings.Join(valid, ", "))
	}
	return &v, nil
}
