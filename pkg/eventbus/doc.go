// Package eventbus implements a minimal synchronous publish/subscribe
// dispatcher.
//
// The bus is the event backbone of the panel and is also used by the
// subscription registry to fan out controller push events to every widget
// interested in the same variable or signal.
//
// # Delivery
//
// Trigger invokes every listener registered for the topic at the time of the
// call, in registration order, on the calling goroutine. Listeners added
// while a trigger is in progress are not invoked for that trigger. There is
// no persistence and no replay.
//
// # Listener identity
//
// Go functions are not comparable, so listeners are values implementing
// Listener. NewListener wraps a function in a pointer, which gives each
// wrapped function a stable identity:
//
//	l := eventbus.NewListener(func(ev eventbus.Event) {
//	    fmt.Println(ev.Topic, ev.Data)
//	})
//	bus.On("mastership", l)
//	bus.On("mastership", l) // no-op, already registered
package eventbus
