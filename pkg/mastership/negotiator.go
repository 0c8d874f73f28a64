package mastership

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// Remote-access polling defaults. 500 polls at 200ms bound the wait for the
// operator to roughly 100 seconds.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultMaxPolls     = 500
)

// NegotiatorConfig configures remote-access polling.
type NegotiatorConfig struct {
	PollInterval time.Duration
	MaxPolls     int
}

// DefaultNegotiatorConfig returns the default polling parameters.
func DefaultNegotiatorConfig() NegotiatorConfig {
	return NegotiatorConfig{
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
	}
}

// Negotiator obtains remote-access (RMMP) privilege from the operator at
// the teach pendant.
type Negotiator struct {
	api      rws.MastershipAPI
	config   NegotiatorConfig
	logger   *slog.Logger
	recorder *log.Recorder
}

// NewNegotiator creates a negotiator. Zero config fields take defaults.
func NewNegotiator(api rws.MastershipAPI, config NegotiatorConfig, logger *slog.Logger, recorder *log.Recorder) *Negotiator {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.MaxPolls <= 0 {
		config.MaxPolls = DefaultMaxPolls
	}
	return &Negotiator{api: api, config: config, logger: logger, recorder: recorder}
}

// Negotiate requests remote access and polls until it is granted. It
// returns a *DeniedError with ErrRemoteAccessRejected if the operator
// refuses, or ErrRemoteAccessTimeout after MaxPolls pending polls. A
// cancelled ctx withdraws the request and returns ctx.Err().
func (n *Negotiator) Negotiate(ctx context.Context, domain rws.Domain) error {
	if err := n.api.RequestRMMP(ctx); err != nil {
		var se *rws.StatusError
		if errors.As(err, &se) {
			return n.deny(domain, ErrRemoteAccessRejected, err)
		}
		return err
	}
	n.recorder.StateChange(log.StateEntityRemoteAccess, string(domain), "", string(rws.RMMPPending), "")

	timer := time.NewTimer(n.config.PollInterval)
	defer timer.Stop()

	for poll := 0; poll < n.config.MaxPolls; poll++ {
		select {
		case <-ctx.Done():
			n.cancel(ctx)
			return ctx.Err()
		case <-timer.C:
		}

		state, err := n.api.RMMPState(ctx)
		if err != nil {
			n.cancel(ctx)
			return err
		}
		switch {
		case state.Granted():
			n.recorder.StateChange(log.StateEntityRemoteAccess, string(domain), string(rws.RMMPPending), string(state.Privilege), "")
			if n.logger != nil {
				n.logger.Debug("mastership: remote access granted", "domain", domain, "polls", poll+1)
			}
			return nil
		case state.Privilege == rws.RMMPPending:
			timer.Reset(n.config.PollInterval)
		default:
			return n.deny(domain, ErrRemoteAccessRejected, nil)
		}
	}

	n.cancel(ctx)
	return n.deny(domain, ErrRemoteAccessTimeout, nil)
}

func (n *Negotiator) deny(domain rws.Domain, reason, err error) error {
	n.recorder.StateChange(log.StateEntityRemoteAccess, string(domain), string(rws.RMMPPending), "DENIED", reason.Error())
	return &DeniedError{Domain: domain, Reason: reason, Err: err}
}

// cancel withdraws a pending request. Failures are only logged.
func (n *Negotiator) cancel(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.config.PollInterval+time.Second)
	defer cancel()
	if err := n.api.CancelRMMP(cctx); err != nil {
		n.recorder.Failure(log.LayerCoordination, "rmmp", "cancel", err)
		if n.logger != nil {
			n.logger.Warn("mastership: cancel remote access failed", "error", err)
		}
	}
}
