package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Supervisor errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrInProgress       = errors.New("connection attempt in progress")
	ErrGaveUp           = errors.New("push channel recovery abandoned")
)

// State is the push channel state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

var stateNames = [...]string{
	StateDisconnected: "DISCONNECTED",
	StateConnecting:   "CONNECTING",
	StateConnected:    "CONNECTED",
	StateReconnecting: "RECONNECTING",
	StateClosed:       "CLOSED",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// DialFunc opens the channel. A nil return means the channel is live and
// every subscribed resource has been registered with the controller.
type DialFunc func(ctx context.Context) error

// Config configures a Supervisor.
type Config struct {
	// Retry paces reconnection attempts.
	Retry Policy

	// DialTimeout bounds each reconnection attempt.
	DialTimeout time.Duration

	// MaxAttempts abandons recovery after this many failed retries.
	// Zero retries forever.
	MaxAttempts int

	// AutoReconnect starts recovery when the channel is reported lost.
	AutoReconnect bool

	// Fatal reports dial errors that retrying cannot fix. Nil retries
	// every error.
	Fatal func(error) bool

	// OnStateChange observes every state transition.
	OnStateChange func(from, to State)

	// OnRetry runs before each wait, with the error that caused it.
	OnRetry func(attempt int, wait time.Duration, cause error)

	// OnGiveUp runs once recovery is abandoned. The error wraps ErrGaveUp.
	OnGiveUp func(err error)
}

// DefaultConfig returns the push channel defaults.
func DefaultConfig() Config {
	return Config{
		Retry:         DefaultPolicy(),
		DialTimeout:   10 * time.Second,
		AutoReconnect: true,
	}
}

// Supervisor drives one push channel through connect, loss and recovery.
// Hooks run without internal locks held, on the goroutine that caused the
// transition.
type Supervisor struct {
	dial DialFunc
	cfg  Config

	mu       sync.Mutex
	state    State
	attempts int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor returns a disconnected supervisor for dial.
func NewSupervisor(dial DialFunc, cfg Config) *Supervisor {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{dial: dial, cfg: cfg, ctx: ctx, cancel: cancel}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the number of retries since the last successful dial.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Connect dials once, without retrying. It is only valid while
// disconnected.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		s.mu.Unlock()
		return ErrConnectionClosed
	case StateConnecting, StateReconnecting:
		s.mu.Unlock()
		return ErrInProgress
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.changed(StateDisconnected, StateConnecting)

	err := s.dial(ctx)

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrConnectionClosed
	}
	to := StateConnected
	if err != nil {
		to = StateDisconnected
	} else {
		s.attempts = 0
	}
	s.state = to
	s.mu.Unlock()
	s.changed(StateConnecting, to)
	return err
}

// ConnectionLost reports that the live channel failed with cause. It starts
// recovery when AutoReconnect is set. Reports in any other state than
// connected are ignored.
func (s *Supervisor) ConnectionLost(cause error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	to := StateDisconnected
	if s.cfg.AutoReconnect {
		to = StateReconnecting
		s.wg.Add(1)
		go s.recover(cause)
	}
	s.state = to
	s.mu.Unlock()
	s.changed(StateConnected, to)
}

// Close stops any recovery in progress and waits for it to exit.
func (s *Supervisor) Close() {
	s.mu.Lock()
	from := s.state
	if from == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()
	s.changed(from, StateClosed)

	s.cancel()
	s.wg.Wait()
}

func (s *Supervisor) recover(cause error) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		if s.cfg.MaxAttempts > 0 && s.attempts >= s.cfg.MaxAttempts {
			s.mu.Unlock()
			s.abandon(cause)
			return
		}
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		wait := s.cfg.Retry.Delay(attempt)
		if s.cfg.OnRetry != nil {
			s.cfg.OnRetry(attempt, wait, cause)
		}
		if !s.pause(wait) {
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.DialTimeout)
		cause = s.dial(ctx)
		cancel()

		if cause == nil {
			s.mu.Lock()
			if s.state != StateReconnecting {
				s.mu.Unlock()
				return
			}
			s.state = StateConnected
			s.attempts = 0
			s.mu.Unlock()
			s.changed(StateReconnecting, StateConnected)
			return
		}
		if s.cfg.Fatal != nil && s.cfg.Fatal(cause) {
			s.abandon(cause)
			return
		}
	}
}

func (s *Supervisor) abandon(cause error) {
	s.mu.Lock()
	if s.state != StateReconnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()
	s.changed(StateReconnecting, StateDisconnected)

	if s.cfg.OnGiveUp != nil {
		s.cfg.OnGiveUp(errors.Join(ErrGaveUp, cause))
	}
}

// pause waits d and reports false if the supervisor closed meanwhile.
func (s *Supervisor) pause(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) changed(from, to State) {
	if from != to && s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(from, to)
	}
}
