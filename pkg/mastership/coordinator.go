package mastership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/log"
	"github.com/rws-panel/rws-go/pkg/metrics"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// State is the per-domain mastership state.
type State uint8

const (
	StateFree State = iota
	StateRequesting
	StateHeld
	StateReleasing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateRequesting:
		return "REQUESTING"
	case StateHeld:
		return "HELD"
	case StateReleasing:
		return "RELEASING"
	default:
		return "UNKNOWN"
	}
}

// DefaultReleaseTimeout bounds the release call.
const DefaultReleaseTimeout = 5 * time.Second

// DefaultRequestTimeout bounds one shared mastership request, remote-access
// negotiation included.
const DefaultRequestTimeout = 2 * time.Minute

// DefaultTopic is the bus topic StateChange events are published on.
const DefaultTopic = "mastership"

// StateChange is published on the bus for every transition.
type StateChange struct {
	Domain rws.Domain
	Old    State
	New    State
	Err    error
}

// Config configures a Coordinator.
type Config struct {
	// ReleaseTimeout bounds each release request.
	ReleaseTimeout time.Duration

	// RequestTimeout bounds a request shared by concurrent callers. It runs
	// detached from any single caller's context.
	RequestTimeout time.Duration

	// Negotiator configures remote-access polling.
	Negotiator NegotiatorConfig

	// Bus receives StateChange events on Topic. May be nil.
	Bus   *eventbus.Bus
	Topic string

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Recorder captures transitions. May be nil.
	Recorder *log.Recorder

	// Metrics receives request and hold metrics. May be nil.
	Metrics *metrics.Collector
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		ReleaseTimeout: DefaultReleaseTimeout,
		RequestTimeout: DefaultRequestTimeout,
		Negotiator:     DefaultNegotiatorConfig(),
		Topic:          DefaultTopic,
	}
}

type domainState struct {
	state     State
	holders   int
	heldSince time.Time

	// released is closed when a Releasing domain becomes Free.
	released chan struct{}

	// flight is the request in progress while Requesting.
	flight *flight
}

// flight is one controller request shared by every caller waiting on it.
// It is cancelled only when all of them have given up.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
	done    chan struct{}
}

// Coordinator tracks mastership of every domain for one controller client.
// It is safe for concurrent use.
type Coordinator struct {
	api        rws.MastershipAPI
	config     Config
	negotiator *Negotiator

	group singleflight.Group

	mu      sync.Mutex
	domains map[rws.Domain]*domainState
	flights uint64
}

// NewCoordinator creates a coordinator. Zero config fields take defaults.
func NewCoordinator(api rws.MastershipAPI, config Config) *Coordinator {
	if config.ReleaseTimeout <= 0 {
		config.ReleaseTimeout = DefaultReleaseTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	return &Coordinator{
		api:        api,
		config:     config,
		negotiator: NewNegotiator(api, config.Negotiator, config.Logger, config.Recorder),
		domains:    make(map[rws.Domain]*domainState),
	}
}

// domain returns the state for d. Caller must hold c.mu.
func (c *Coordinator) domain(d rws.Domain) *domainState {
	st, ok := c.domains[d]
	if !ok {
		st = &domainState{}
		c.domains[d] = st
	}
	return st
}

// State returns the current state of a domain.
func (c *Coordinator) State(domain rws.Domain) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.domain(domain).state
}

// Holders returns how many callers currently hold a domain.
func (c *Coordinator) Holders(domain rws.Domain) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.domain(domain).holders
}

// Request obtains mastership of domain. If the domain is already held by
// this client the call only registers another holder. Concurrent calls
// share one controller request and its outcome; a caller whose ctx ends
// leaves the shared request running for the others. Every successful
// Request must be paired with a Release.
func (c *Coordinator) Request(ctx context.Context, domain rws.Domain) error {
	for {
		c.mu.Lock()
		st := c.domain(domain)
		switch st.state {
		case StateHeld:
			st.holders++
			c.mu.Unlock()
			return nil
		case StateReleasing:
			wait := st.released
			c.mu.Unlock()
			if err := waitFor(ctx, wait); err != nil {
				return err
			}
			continue
		}

		f := st.flight
		if f != nil && f.waiters == 0 {
			// Abandoned by every caller and still unwinding.
			done := f.done
			c.mu.Unlock()
			if err := waitFor(ctx, done); err != nil {
				return err
			}
			continue
		}
		if f == nil {
			f = c.newFlight(ctx, domain)
			st.flight = f
		}
		f.waiters++
		c.mu.Unlock()

		ch := c.group.DoChan(f.key, func() (any, error) {
			defer c.endFlight(domain, f)
			return nil, c.acquire(f.ctx, domain)
		})

		select {
		case res := <-ch:
			c.mu.Lock()
			f.waiters--
			if res.Err != nil {
				c.mu.Unlock()
				return res.Err
			}
			st = c.domain(domain)
			if st.state == StateHeld {
				st.holders++
				c.mu.Unlock()
				return nil
			}
			// Released between the shared acquire and this caller's turn.
			c.mu.Unlock()

		case <-ctx.Done():
			c.mu.Lock()
			f.waiters--
			last := f.waiters == 0
			c.mu.Unlock()
			if last {
				f.cancel()
				if res := <-ch; res.Err == nil {
					c.releaseUnclaimed(ctx, domain)
				}
			}
			return ctx.Err()
		}
	}
}

func (c *Coordinator) newFlight(ctx context.Context, domain rws.Domain) *flight {
	c.flights++
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RequestTimeout)
	return &flight{
		key:    fmt.Sprintf("%s#%d", domain, c.flights),
		ctx:    fctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (c *Coordinator) endFlight(domain rws.Domain, f *flight) {
	c.mu.Lock()
	if st := c.domain(domain); st.flight == f {
		st.flight = nil
	}
	c.mu.Unlock()
	f.cancel()
	close(f.done)
}

// releaseUnclaimed gives back a lock obtained after every caller of the
// request had left.
func (c *Coordinator) releaseUnclaimed(ctx context.Context, domain rws.Domain) {
	c.mu.Lock()
	st := c.domain(domain)
	if st.state != StateHeld || st.holders != 0 {
		c.mu.Unlock()
		return
	}
	st.holders = 1
	c.mu.Unlock()
	c.debugLog("mastership: releasing unclaimed lock", "domain", domain)
	c.Release(ctx, domain)
}

// acquire drives Free -> Requesting -> Held. It leaves the holder count to
// the callers of Request.
func (c *Coordinator) acquire(ctx context.Context, domain rws.Domain) error {
	c.mu.Lock()
	st := c.domain(domain)
	if st.state != StateFree {
		c.mu.Unlock()
		return nil
	}
	st.state = StateRequesting
	c.mu.Unlock()
	c.publish(domain, StateFree, StateRequesting, nil)

	c.config.Metrics.MastershipRequested(string(domain))
	start := time.Now()
	err := c.requestLock(ctx, domain)

	c.mu.Lock()
	if err != nil {
		st.state = StateFree
	} else {
		st.state = StateHeld
		st.heldSince = time.Now()
	}
	c.mu.Unlock()

	if err != nil {
		c.config.Metrics.MastershipDenied(string(domain), reasonLabel(err))
		c.config.Recorder.Failure(log.LayerCoordination, string(domain), "request", err)
		c.logWarn("mastership: request failed", "domain", domain, "error", err)
		c.publish(domain, StateRequesting, StateFree, err)
		return err
	}
	c.config.Metrics.MastershipHeld(string(domain), time.Since(start))
	c.debugLog("mastership: held", "domain", domain, "wait", time.Since(start))
	c.publish(domain, StateRequesting, StateHeld, nil)
	return nil
}

// requestLock talks to the controller, negotiating remote access first when
// the teach pendant holds the lock in manual mode.
func (c *Coordinator) requestLock(ctx context.Context, domain rws.Domain) error {
	status, err := c.api.Status(ctx, domain)
	if err != nil {
		return err
	}
	if status.HeldByMe {
		c.debugLog("mastership: already held by this client", "domain", domain)
		return nil
	}

	if status.Holder == rws.HolderLocal {
		mode, err := c.api.OperatingMode(ctx)
		if err != nil {
			return err
		}
		if mode.IsAuto() {
			return &DeniedError{Domain: domain, Reason: ErrDeniedInAuto}
		}
		c.debugLog("mastership: negotiating remote access", "domain", domain, "mode", mode)
		if err := c.negotiator.Negotiate(ctx, domain); err != nil {
			return err
		}
	}

	if err := c.api.Request(ctx, domain); err != nil {
		var se *rws.StatusError
		if errors.As(err, &se) {
			return &DeniedError{Domain: domain, Reason: ErrControllerDenied, Err: err}
		}
		return err
	}
	return nil
}

// Release drops one hold on domain. The last holder releases the controller
// lock. Release is a no-op for domains that are not held. Controller
// failures are logged, never returned.
func (c *Coordinator) Release(ctx context.Context, domain rws.Domain) {
	c.mu.Lock()
	st := c.domain(domain)
	if st.state != StateHeld || st.holders == 0 {
		c.mu.Unlock()
		return
	}
	st.holders--
	if st.holders > 0 {
		holders := st.holders
		c.mu.Unlock()
		c.debugLog("mastership: hold dropped", "domain", domain, "holders", holders)
		return
	}
	st.state = StateReleasing
	st.released = make(chan struct{})
	heldSince := st.heldSince
	c.mu.Unlock()
	c.publish(domain, StateHeld, StateReleasing, nil)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.ReleaseTimeout)
	err := c.api.Release(rctx, domain)
	cancel()
	if err != nil {
		c.config.Recorder.Failure(log.LayerCoordination, string(domain), "release", err)
		c.logWarn("mastership: release failed", "domain", domain, "error", err)
	}

	c.mu.Lock()
	st.state = StateFree
	close(st.released)
	st.released = nil
	c.mu.Unlock()

	c.config.Metrics.MastershipReleased(string(domain))
	c.debugLog("mastership: released", "domain", domain, "held", time.Since(heldSince))
	c.publish(domain, StateReleasing, StateFree, err)
}

// WithMastership runs fn while holding domain. The hold is released on
// every exit path of fn. The error from fn is returned unchanged.
func (c *Coordinator) WithMastership(ctx context.Context, domain rws.Domain, fn func(ctx context.Context) error) error {
	if err := c.Request(ctx, domain); err != nil {
		return err
	}
	defer c.Release(ctx, domain)
	return fn(ctx)
}

func (c *Coordinator) publish(domain rws.Domain, from, to State, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	c.config.Recorder.StateChange(log.StateEntityMastership, string(domain), from.String(), to.String(), reason)
	if c.config.Bus != nil {
		c.config.Bus.Trigger(c.config.Topic, StateChange{Domain: domain, Old: from, New: to, Err: err})
	}
}

func (c *Coordinator) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

func (c *Coordinator) logWarn(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Warn(msg, args...)
	}
}

func waitFor(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
