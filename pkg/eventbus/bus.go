package eventbus

import (
	"reflect"
	"sync"
)

// Event is a (topic, payload) pair delivered to listeners.
type Event struct {
	Topic string
	Data  any
}

// Listener receives events for the topics it is registered on.
type Listener interface {
	HandleEvent(Event)
}

// funcListener gives a plain function pointer identity.
type funcListener struct {
	fn func(Event)
}

func (l *funcListener) HandleEvent(ev Event) {
	l.fn(ev)
}

// NewListener wraps fn in a Listener. Each call returns a distinct listener;
// keep the returned value to unregister it later.
func NewListener(fn func(Event)) Listener {
	return &funcListener{fn: fn}
}

// Bus is a synchronous, ordered publish/subscribe dispatcher.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]Listener
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string][]Listener)}
}

// On registers l for topic. Registering the same listener twice for the same
// topic is a no-op and returns false.
func (b *Bus) On(topic string, l Listener) bool {
	if l == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.topics[topic] {
		if sameListener(existing, l) {
			return false
		}
	}
	b.topics[topic] = append(b.topics[topic], l)
	return true
}

// Off clears all listeners for topic.
func (b *Bus) Off(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics, topic)
}

// Remove unregisters a single listener from topic.
// Returns true if the listener was registered.
func (b *Bus) Remove(topic string, l Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	listeners := b.topics[topic]
	for i, existing := range listeners {
		if !sameListener(existing, l) {
			continue
		}
		// Copy so that an in-flight Trigger keeps its snapshot intact.
		next := make([]Listener, 0, len(listeners)-1)
		next = append(next, listeners[:i]...)
		next = append(next, listeners[i+1:]...)
		if len(next) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = next
		}
		return true
	}
	return false
}

// Trigger delivers data to every listener registered for topic, in
// registration order. It returns the number of listeners invoked.
func (b *Bus) Trigger(topic string, data any) int {
	b.mu.RLock()
	listeners := b.topics[topic]
	snapshot := make([]Listener, len(listeners))
	copy(snapshot, listeners)
	b.mu.RUnlock()

	ev := Event{Topic: topic, Data: data}
	for _, l := range snapshot {
		l.HandleEvent(ev)
	}
	return len(snapshot)
}

// Count returns the number of listeners registered for topic.
func (b *Bus) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Topics returns the topics that currently have listeners.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]string, 0, len(b.topics))
	for topic := range b.topics {
		result = append(result, topic)
	}
	return result
}

// sameListener compares listeners without panicking on non-comparable
// dynamic types; those are always treated as distinct.
func sameListener(a, b Listener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
