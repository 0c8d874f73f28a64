package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rws-panel/rws-go/pkg/rws"
)

// DefaultInterval is the pause between jog commands.
const DefaultInterval = 200 * time.Millisecond

// Jogger errors.
var (
	ErrRunning    = errors.New("jogger already running")
	ErrNotRunning = errors.New("jogger not running")
)

// Mastership runs fn while holding a mastership domain.
// *mastership.Coordinator implements it.
type Mastership interface {
	WithMastership(ctx context.Context, domain rws.Domain, fn func(ctx context.Context) error) error
}

// Config configures a Jogger.
type Config struct {
	// Interval between jog commands.
	Interval time.Duration

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default jogger configuration.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

// Jogger repeats a jog command while holding motion mastership.
type Jogger struct {
	api        rws.MotionAPI
	mastership Mastership
	config     Config

	mu      sync.Mutex
	cmd     rws.JogCommand
	running bool
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	err     error
	count   int
}

// NewJogger creates a jogger.
func NewJogger(api rws.MotionAPI, mastership Mastership, config Config) *Jogger {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Jogger{api: api, mastership: mastership, config: config}
}

// Start begins jogging with cmd. The change count is fetched from the
// controller once mastership is held. The loop runs until Stop is called,
// ctx is done or a command fails.
func (j *Jogger) Start(ctx context.Context, cmd rws.JogCommand) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return ErrRunning
	}
	j.cmd = cmd
	j.running = true
	j.stopped = false
	j.err = nil
	j.count = 0
	j.wake = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.wake, j.done)
	return nil
}

// Update replaces the axis speeds of a running jog.
func (j *Jogger) Update(axes [6]int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return ErrNotRunning
	}
	j.cmd.Axes = axes
	return nil
}

// Stop asks the loop to end. It does not wait; use Wait for that.
func (j *Jogger) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running || j.stopped {
		return
	}
	j.stopped = true
	close(j.wake)
}

// Wait blocks until the loop has ended and returns its error. A loop ended
// by Stop returns nil.
func (j *Jogger) Wait() error {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Running reports whether the loop is active.
func (j *Jogger) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Commands returns how many jog commands the current or last loop sent.
func (j *Jogger) Commands() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

func (j *Jogger) run(ctx context.Context, wake <-chan struct{}, done chan<- struct{}) {
	err := j.mastership.WithMastership(ctx, rws.DomainMotion, func(ctx context.Context) error {
		cc, err := j.api.ChangeCount(ctx)
		if err != nil {
			return fmt.Errorf("change count: %w", err)
		}

		for {
			cmd, stop := j.next(cc)
			if stop {
				return nil
			}
			if err := j.api.Jog(ctx, cmd); err != nil {
				return fmt.Errorf("jog: %w", err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wake:
			case <-time.After(j.config.Interval):
			}
		}
	})

	if err != nil && j.config.Logger != nil {
		j.config.Logger.Warn("motion: jog loop ended", "error", err)
	}

	j.mu.Lock()
	j.err = err
	j.running = false
	j.mu.Unlock()
	close(done)
}

// next returns the command to send, or stop=true once Stop was called.
func (j *Jogger) next(changeCount int) (rws.JogCommand, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return rws.JogCommand{}, true
	}
	cmd := j.cmd
	cmd.ChangeCount = changeCount
	j.count++
	return cmd, false
}
