package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/log"
	"github.com/rws-panel/rws-go/pkg/metrics"
)

// Registry errors.
var (
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrClosed             = errors.New("registry closed")
)

// Instance is a subscribable shared object, typically a *variable.Variable
// or *variable.Signal.
type Instance interface {
	Subscribe(ctx context.Context, raiseInitial bool) error
	Unsubscribe(ctx context.Context) error
}

// Binding tells a CreateFunc where the instance must publish its changes.
type Binding struct {
	Bus   *eventbus.Bus
	Topic string
}

// CreateFunc builds a new instance for a key. It runs without registry
// locks held and may perform network calls.
type CreateFunc[T Instance] func(ctx context.Context, b Binding) (T, error)

// Config configures a Registry.
type Config struct {
	// Name labels metrics and log lines ("variables", "signals").
	Name string

	// Bus carries change events. A private bus is created when nil.
	Bus *eventbus.Bus

	// RaiseInitial asks new subscriptions to publish the current value.
	RaiseInitial bool

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Recorder captures entry lifecycle transitions. May be nil.
	Recorder *log.Recorder

	// Metrics receives subscription counters. May be nil.
	Metrics *metrics.Collector
}

type entry[T Instance] struct {
	instance   T
	refs       int
	subscribed bool

	// cache holds the last published change.
	cache    any
	hasCache bool
	listener eventbus.Listener

	// ready is closed once creation finished; err is set on failure.
	// abandoned marks a creation cut short by the creator's context, which
	// waiters retry instead of sharing.
	ready     chan struct{}
	err       error
	abandoned bool

	// releasing is non-nil while the last reference is being torn down.
	releasing chan struct{}
}

func (e *entry[T]) pending() bool {
	select {
	case <-e.ready:
		return false
	default:
		return true
	}
}

// Registry shares one subscribed instance per key between any number of
// callers. It is safe for concurrent use.
type Registry[T Instance] struct {
	config Config
	bus    *eventbus.Bus

	mu      sync.Mutex
	entries map[string]*entry[T]
	blocked bool
	closed  bool
}

// New creates a registry.
func New[T Instance](config Config) *Registry[T] {
	if config.Name == "" {
		config.Name = "subscriptions"
	}
	bus := config.Bus
	if bus == nil {
		bus = eventbus.New()
	}
	return &Registry[T]{
		config:  config,
		bus:     bus,
		entries: make(map[string]*entry[T]),
	}
}

// Bus returns the bus entry topics live on.
func (r *Registry[T]) Bus() *eventbus.Bus {
	return r.bus
}

// Acquire returns the shared instance for key, creating and subscribing it
// on first use. Every successful Acquire must be paired with a Release.
func (r *Registry[T]) Acquire(ctx context.Context, key Key, create CreateFunc[T]) (T, error) {
	var zero T
	id := key.String()

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return zero, ErrClosed
		}
		e, ok := r.entries[id]
		if !ok {
			break // still locked
		}
		if e.releasing != nil {
			wait := e.releasing
			r.mu.Unlock()
			if err := waitFor(ctx, wait); err != nil {
				return zero, err
			}
			continue
		}
		if e.pending() {
			r.mu.Unlock()
			if err := waitFor(ctx, e.ready); err != nil {
				return zero, err
			}
			if e.err != nil && !e.abandoned {
				return zero, e.err
			}
			continue
		}
		e.refs++
		refs := e.refs
		r.mu.Unlock()
		r.debugLog("registry: shared", "key", id, "refs", refs)
		return e.instance, nil
	}

	// Install a placeholder so concurrent callers wait on this creation.
	e := &entry[T]{ready: make(chan struct{})}
	r.entries[id] = e
	blocked := r.blocked
	r.mu.Unlock()

	r.config.Recorder.StateChange(log.StateEntitySubscription, id, "", "CREATING", "")

	instance, subscribed, err := r.create(ctx, id, create, e, blocked)

	r.mu.Lock()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		e.err = err
		e.abandoned = true
		delete(r.entries, id)
		close(e.ready)
		r.mu.Unlock()

		r.config.Recorder.StateChange(log.StateEntitySubscription, id, "CREATING", "CANCELLED", err.Error())
		r.debugLog("registry: acquire cancelled", "key", id, "error", err)
		return zero, err
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrSubscriptionFailed, id, err)
		e.err = err
		delete(r.entries, id)
		close(e.ready)
		r.mu.Unlock()

		r.config.Metrics.SubscribeFailed(r.config.Name)
		r.config.Recorder.Failure(log.LayerCoordination, id, "acquire", err)
		r.config.Recorder.StateChange(log.StateEntitySubscription, id, "CREATING", "FAILED", err.Error())
		r.logWarn("registry: acquire failed", "key", id, "error", err)
		return zero, err
	}
	e.instance = instance
	e.subscribed = subscribed
	if r.closed {
		// Close ran while this entry was pending and skipped it.
		e.err = ErrClosed
		delete(r.entries, id)
		close(e.ready)
		r.mu.Unlock()

		if subscribed {
			r.config.Metrics.Subscribed(r.config.Name)
		}
		if terr := r.teardown(ctx, id, e); terr != nil {
			return zero, errors.Join(ErrClosed, terr)
		}
		return zero, ErrClosed
	}
	e.refs = 1
	close(e.ready)
	r.mu.Unlock()

	if subscribed {
		r.config.Metrics.Subscribed(r.config.Name)
	}
	r.config.Recorder.StateChange(log.StateEntitySubscription, id, "CREATING", "ACTIVE", "")
	r.debugLog("registry: created", "key", id, "subscribed", subscribed)
	return instance, nil
}

// create builds and subscribes a new instance. On failure every side effect
// on the bus is undone.
func (r *Registry[T]) create(ctx context.Context, id string, create CreateFunc[T], e *entry[T], blocked bool) (T, bool, error) {
	var zero T

	instance, err := create(ctx, Binding{Bus: r.bus, Topic: id})
	if err != nil {
		return zero, false, err
	}

	// The cache listener goes first so it sees the initial value.
	e.listener = eventbus.NewListener(func(ev eventbus.Event) {
		r.mu.Lock()
		e.cache = ev.Data
		e.hasCache = true
		r.mu.Unlock()
		r.config.Metrics.Pushed(r.config.Name)
	})
	r.bus.On(id, e.listener)

	if blocked {
		r.logWarn("registry: subscriptions blocked, not subscribing", "key", id)
		return instance, false, nil
	}

	if err := instance.Subscribe(ctx, r.config.RaiseInitial); err != nil {
		r.bus.Off(id)
		return zero, false, err
	}
	return instance, true, nil
}

// Release drops one reference to key. The last release unsubscribes the
// underlying handle and removes the entry. Releasing an unknown key is a
// no-op.
func (r *Registry[T]) Release(ctx context.Context, key Key) error {
	id := key.String()

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.pending() || e.releasing != nil {
		r.mu.Unlock()
		return nil
	}
	e.refs--
	if e.refs > 0 {
		refs := e.refs
		r.mu.Unlock()
		r.debugLog("registry: released", "key", id, "refs", refs)
		return nil
	}
	e.releasing = make(chan struct{})
	r.mu.Unlock()

	err := r.teardown(ctx, id, e)

	r.mu.Lock()
	delete(r.entries, id)
	close(e.releasing)
	r.mu.Unlock()
	return err
}

func (r *Registry[T]) teardown(ctx context.Context, id string, e *entry[T]) error {
	r.bus.Off(id)

	var err error
	if e.subscribed {
		if err = e.instance.Unsubscribe(ctx); err != nil {
			r.config.Recorder.Failure(log.LayerCoordination, id, "release", err)
			r.logWarn("registry: unsubscribe failed", "key", id, "error", err)
		} else {
			r.config.Metrics.Unsubscribed(r.config.Name)
		}
	}
	r.config.Recorder.StateChange(log.StateEntitySubscription, id, "ACTIVE", "REMOVED", "")
	r.debugLog("registry: removed", "key", id)
	return err
}

// On registers a change listener for an acquired key. It returns false if
// the key is not active or l is already registered.
func (r *Registry[T]) On(key Key, l eventbus.Listener) bool {
	if !r.active(key) {
		return false
	}
	return r.bus.On(key.String(), l)
}

// Off removes a change listener. It returns false if l was not registered.
func (r *Registry[T]) Off(key Key, l eventbus.Listener) bool {
	return r.bus.Remove(key.String(), l)
}

func (r *Registry[T]) active(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key.String()]
	return ok && !e.pending() && e.releasing == nil
}

// SetBlocked sets the subscription kill-switch. It only affects entries
// created afterwards.
func (r *Registry[T]) SetBlocked(blocked bool) {
	r.mu.Lock()
	r.blocked = blocked
	r.mu.Unlock()
	r.logWarn("registry: subscriptions blocked changed", "blocked", blocked)
}

// Blocked reports the kill-switch state.
func (r *Registry[T]) Blocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocked
}

// Lookup returns the active instance for key without taking a reference.
func (r *Registry[T]) Lookup(key Key) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key.String()]
	if !ok || e.pending() || e.releasing != nil {
		var zero T
		return zero, false
	}
	return e.instance, true
}

// RefCount returns the number of outstanding references to key.
func (r *Registry[T]) RefCount(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key.String()]; ok && !e.pending() {
		return e.refs
	}
	return 0
}

// Cached returns the last change published for key.
func (r *Registry[T]) Cached(key Key) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key.String()]
	if !ok {
		return nil, false
	}
	return e.cache, e.hasCache
}

// Count returns the number of active entries.
func (r *Registry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if !e.pending() {
			n++
		}
	}
	return n
}

// Keys returns the active entry keys, sorted.
func (r *Registry[T]) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if !e.pending() {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)
	return keys
}

// Close unsubscribes every active entry regardless of its reference count
// and rejects further Acquire calls.
func (r *Registry[T]) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	type victim struct {
		id string
		e  *entry[T]
	}
	var victims []victim
	for id, e := range r.entries {
		if e.pending() || e.releasing != nil {
			continue
		}
		e.releasing = make(chan struct{})
		victims = append(victims, victim{id, e})
	}
	r.mu.Unlock()

	var errs []error
	for _, v := range victims {
		if err := r.teardown(ctx, v.id, v.e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v.id, err))
		}
		r.mu.Lock()
		delete(r.entries, v.id)
		close(v.e.releasing)
		r.mu.Unlock()
	}
	return errors.Join(errs...)
}

func waitFor(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry[T]) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, append([]any{"registry", r.config.Name}, args...)...)
	}
}

func (r *Registry[T]) logWarn(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Warn(msg, append([]any{"registry", r.config.Name}, args...)...)
	}
}
