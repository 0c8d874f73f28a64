package log

import "slices"

// Logger receives protocol events. Implementations must be safe for
// concurrent use and must not block: events arrive on the push reader
// goroutine.
type Logger interface {
	Log(event Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// NoopLogger discards every event.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

// Tee returns a Logger that hands each event to every non-nil logger, in
// argument order. With no usable loggers it returns NoopLogger.
func Tee(loggers ...Logger) Logger {
	kept := slices.DeleteFunc(slices.Clone(loggers), func(l Logger) bool { return l == nil })
	switch len(kept) {
	case 0:
		return NoopLogger{}
	case 1:
		return kept[0]
	}
	return tee(kept)
}

type tee []Logger

func (t tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}
