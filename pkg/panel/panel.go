package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/log"
	"github.com/rws-panel/rws-go/pkg/mastership"
	"github.com/rws-panel/rws-go/pkg/metrics"
	"github.com/rws-panel/rws-go/pkg/motion"
	"github.com/rws-panel/rws-go/pkg/rws"
	"github.com/rws-panel/rws-go/pkg/subscription"
	"github.com/rws-panel/rws-go/pkg/variable"
)

// Global bus topics.
const (
	TopicMastership          = mastership.DefaultTopic
	TopicSubscriptionBlocked = "subscription.blocked"
)

// Config configures a Panel.
type Config struct {
	// RaiseInitial publishes the current value when a key is first
	// subscribed.
	RaiseInitial bool

	// Mastership configures the coordinator. Bus, Topic, Logger, Recorder
	// and Metrics are filled in by the panel.
	Mastership mastership.Config

	// Jog configures the jogger.
	Jog motion.Config

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Recorder captures coordination events. May be nil.
	Recorder *log.Recorder

	// Metrics receives registry and mastership metrics. May be nil.
	Metrics *metrics.Collector
}

// DefaultConfig returns the default panel configuration.
func DefaultConfig() Config {
	return Config{
		RaiseInitial: true,
		Mastership:   mastership.DefaultConfig(),
		Jog:          motion.DefaultConfig(),
	}
}

// Panel coordinates widgets sharing one controller.
type Panel struct {
	ctrl   rws.Controller
	config Config
	events *eventbus.Bus

	variables  *subscription.Registry[*variable.Variable]
	signals    *subscription.Registry[*variable.Signal]
	mastership *mastership.Coordinator
	jogger     *motion.Jogger
}

// New creates a panel for ctrl.
func New(ctrl rws.Controller, config Config) *Panel {
	events := eventbus.New()

	msCfg := config.Mastership
	msCfg.Bus = events
	msCfg.Topic = TopicMastership
	msCfg.Logger = config.Logger
	msCfg.Recorder = config.Recorder
	msCfg.Metrics = config.Metrics
	coord := mastership.NewCoordinator(ctrl.Mastership(), msCfg)

	jogCfg := config.Jog
	if jogCfg.Logger == nil {
		jogCfg.Logger = config.Logger
	}

	registryConfig := func(name string) subscription.Config {
		return subscription.Config{
			Name:         name,
			Bus:          events,
			RaiseInitial: config.RaiseInitial,
			Logger:       config.Logger,
			Recorder:     config.Recorder,
			Metrics:      config.Metrics,
		}
	}

	return &Panel{
		ctrl:       ctrl,
		config:     config,
		events:     events,
		variables:  subscription.New[*variable.Variable](registryConfig("variables")),
		signals:    subscription.New[*variable.Signal](registryConfig("signals")),
		mastership: coord,
		jogger:     motion.NewJogger(ctrl.Motion(), coord, jogCfg),
	}
}

// Events returns the panel's event bus.
func (p *Panel) Events() *eventbus.Bus { return p.events }

// Mastership returns the mastership coordinator.
func (p *Panel) Mastership() *mastership.Coordinator { return p.mastership }

// Jogger returns the panel's jogger.
func (p *Panel) Jogger() *motion.Jogger { return p.jogger }

// Variables returns the variable registry.
func (p *Panel) Variables() *subscription.Registry[*variable.Variable] { return p.variables }

// Signals returns the signal registry.
func (p *Panel) Signals() *subscription.Registry[*variable.Signal] { return p.signals }

// AcquireVariable returns the shared variable for task/module/name. Pair
// every successful call with ReleaseVariable.
func (p *Panel) AcquireVariable(ctx context.Context, task, module, name string) (*variable.Variable, error) {
	key := subscription.VariableKey{Task: task, Module: module, Name: name}
	return p.variables.Acquire(ctx, key, func(ctx context.Context, b subscription.Binding) (*variable.Variable, error) {
		return variable.New(ctx, p.ctrl.Data(key.Symbol()),
			variable.WithBus(b.Bus, b.Topic),
			variable.WithLogger(p.config.Logger))
	})
}

// ReleaseVariable drops a reference taken by AcquireVariable.
func (p *Panel) ReleaseVariable(ctx context.Context, task, module, name string) error {
	return p.variables.Release(ctx, subscription.VariableKey{Task: task, Module: module, Name: name})
}

// AcquireSignal returns the shared signal. Network and device may be empty
// for signals addressed by name only.
func (p *Panel) AcquireSignal(ctx context.Context, network, device, name string) (*variable.Signal, error) {
	key := subscription.SignalKey{Network: network, Device: device, Name: name}
	return p.signals.Acquire(ctx, key, func(ctx context.Context, b subscription.Binding) (*variable.Signal, error) {
		return variable.NewSignal(ctx, p.ctrl.Signal(key.Ref()),
			variable.WithBus(b.Bus, b.Topic),
			variable.WithLogger(p.config.Logger))
	})
}

// ReleaseSignal drops a reference taken by AcquireSignal.
func (p *Panel) ReleaseSignal(ctx context.Context, network, device, name string) error {
	return p.signals.Release(ctx, subscription.SignalKey{Network: network, Device: device, Name: name})
}

// ReadVariable fetches the current value of a RAPID variable. An acquired
// variable is reused; otherwise a temporary one is built without
// subscribing.
func (p *Panel) ReadVariable(ctx context.Context, task, module, name string) (any, error) {
	key := subscription.VariableKey{Task: task, Module: module, Name: name}
	target, ok := p.variables.Lookup(key)
	if !ok {
		var err error
		target, err = variable.New(ctx, p.ctrl.Data(key.Symbol()))
		if err != nil {
			return nil, err
		}
	}
	return target.Value(ctx)
}

// ReadSignal fetches the current value of an I/O signal.
func (p *Panel) ReadSignal(ctx context.Context, network, device, name string) (any, error) {
	key := subscription.SignalKey{Network: network, Device: device, Name: name}
	target, ok := p.signals.Lookup(key)
	if !ok {
		var err error
		target, err = variable.NewSignal(ctx, p.ctrl.Signal(key.Ref()))
		if err != nil {
			return nil, err
		}
	}
	return target.Value(ctx)
}

// SetVariable writes v to a RAPID variable under edit mastership. An
// acquired variable is reused; otherwise a temporary one is built without
// subscribing.
func (p *Panel) SetVariable(ctx context.Context, task, module, name string, v any) error {
	key := subscription.VariableKey{Task: task, Module: module, Name: name}
	return p.mastership.WithMastership(ctx, rws.DomainEdit, func(ctx context.Context) error {
		target, ok := p.variables.Lookup(key)
		if !ok {
			var err error
			target, err = variable.New(ctx, p.ctrl.Data(key.Symbol()))
			if err != nil {
				return err
			}
		}
		if err := target.SetValue(ctx, v); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// SetSignal writes v to an I/O signal. Signals need no mastership.
func (p *Panel) SetSignal(ctx context.Context, network, device, name string, v any) error {
	key := subscription.SignalKey{Network: network, Device: device, Name: name}
	target, ok := p.signals.Lookup(key)
	if !ok {
		var err error
		target, err = variable.NewSignal(ctx, p.ctrl.Signal(key.Ref()))
		if err != nil {
			return err
		}
	}
	if err := target.SetValue(ctx, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// WithMastership runs fn while holding domain.
func (p *Panel) WithMastership(ctx context.Context, domain rws.Domain, fn func(ctx context.Context) error) error {
	return p.mastership.WithMastership(ctx, domain, fn)
}

// SetSubscriptionsBlocked toggles the subscription kill-switch on both
// registries and publishes the new state on TopicSubscriptionBlocked.
func (p *Panel) SetSubscriptionsBlocked(blocked bool) {
	p.variables.SetBlocked(blocked)
	p.signals.SetBlocked(blocked)
	p.events.Trigger(TopicSubscriptionBlocked, blocked)
}

// SubscriptionsBlocked reports the kill-switch state.
func (p *Panel) SubscriptionsBlocked() bool {
	return p.variables.Blocked()
}

// Close stops jogging and unsubscribes everything.
func (p *Panel) Close(ctx context.Context) error {
	p.jogger.Stop()
	jogErr := p.jogger.Wait()
	if jogErr != nil && p.config.Logger != nil {
		p.config.Logger.Debug("panel: jog loop ended with error", "error", jogErr)
	}

	return errors.Join(
		p.variables.Close(ctx),
		p.signals.Close(ctx),
	)
}
