package log

import (
	"strings"
	"time"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	SessionID string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// ResourcePrefix matches Event.Resource by prefix, so "/rw/iosystem"
	// selects all signal traffic.
	ResourcePrefix string
}

// Matches reports whether event satisfies every set criterion.
func (f Filter) Matches(event Event) bool {
	switch {
	case f.SessionID != "" && f.SessionID != event.SessionID:
	case f.Direction != nil && *f.Direction != event.Direction:
	case f.Layer != nil && *f.Layer != event.Layer:
	case f.Category != nil && *f.Category != event.Category:
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
	case !strings.HasPrefix(event.Resource, f.ResourcePrefix):
	default:
		return true
	}
	return false
}
