// Package metrics exposes Prometheus instrumentation for the registry,
// mastership coordinator and push channel.
//
// All Collector methods are safe to call on a nil *Collector, so components
// can hold one unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "rws_panel"

// Collector holds the metric vectors.
type Collector struct {
	subscriptionsActive *prometheus.GaugeVec
	subscribes          *prometheus.CounterVec
	unsubscribes        *prometheus.CounterVec
	subscribeFailures   *prometheus.CounterVec
	pushEvents          *prometheus.CounterVec

	mastershipRequests *prometheus.CounterVec
	mastershipDenials  *prometheus.CounterVec
	mastershipHeld     *prometheus.GaugeVec
	mastershipWait     *prometheus.HistogramVec
}

// New registers the metrics on reg. Use prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		subscriptionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "subscriptions_active",
				Help:      "Number of registry entries holding a controller subscription",
			},
			[]string{"registry"},
		),
		subscribes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "subscribes_total",
				Help:      "Underlying subscribe calls sent to the controller",
			},
			[]string{"registry"},
		),
		unsubscribes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "unsubscribes_total",
				Help:      "Underlying unsubscribe calls sent to the controller",
			},
			[]string{"registry"},
		),
		subscribeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "subscribe_failures_total",
				Help:      "Subscribe calls rejected by the controller",
			},
			[]string{"registry"},
		),
		pushEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "push_events_total",
				Help:      "Value changes fanned out to listeners",
			},
			[]string{"registry"},
		),
		mastershipRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "mastership_requests_total",
				Help:      "Mastership requests sent to the controller",
			},
			[]string{"domain"},
		),
		mastershipDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "mastership_denials_total",
				Help:      "Mastership requests that failed, by reason",
			},
			[]string{"domain", "reason"},
		),
		mastershipHeld: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "mastership_held",
				Help:      "1 while this client holds the domain",
			},
			[]string{"domain"},
		),
		mastershipWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "mastership_acquire_seconds",
				Help:      "Time from request to held, including remote-access negotiation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"domain"},
		),
	}
}

// Subscribed records an underlying subscribe call.
func (c *Collector) Subscribed(registry string) {
	if c == nil {
		return
	}
	c.subscribes.WithLabelValues(registry).Inc()
	c.subscriptionsActive.WithLabelValues(registry).Inc()
}

// Unsubscribed records an underlying unsubscribe call.
func (c *Collector) Unsubscribed(registry string) {
	if c == nil {
		return
	}
	c.unsubscribes.WithLabelValues(registry).Inc()
	c.subscriptionsActive.WithLabelValues(registry).Dec()
}

// SubscribeFailed records a rejected subscribe call.
func (c *Collector) SubscribeFailed(registry string) {
	if c == nil {
		return
	}
	c.subscribeFailures.WithLabelValues(registry).Inc()
}

// Pushed records a value change delivered to listeners.
func (c *Collector) Pushed(registry string) {
	if c == nil {
		return
	}
	c.pushEvents.WithLabelValues(registry).Inc()
}

// MastershipRequested records a request sent for domain.
func (c *Collector) MastershipRequested(domain string) {
	if c == nil {
		return
	}
	c.mastershipRequests.WithLabelValues(domain).Inc()
}

// MastershipDenied records a failed request.
func (c *Collector) MastershipDenied(domain, reason string) {
	if c == nil {
		return
	}
	c.mastershipDenials.WithLabelValues(domain, reason).Inc()
}

// MastershipHeld records a domain being acquired after waiting d.
func (c *Collector) MastershipHeld(domain string, d time.Duration) {
	if c == nil {
		return
	}
	c.mastershipHeld.WithLabelValues(domain).Set(1)
	c.mastershipWait.WithLabelValues(domain).Observe(d.Seconds())
}

// MastershipReleased records a domain returning to free.
func (c *Collector) MastershipReleased(domain string) {
	if c == nil {
		return
	}
	c.mastershipHeld.WithLabelValues(domain).Set(0)
}
