package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorSubscriptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Subscribed("variable")
	c.Subscribed("variable")
	c.Unsubscribed("variable")
	c.SubscribeFailed("signal")
	c.Pushed("variable")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.subscriptionsActive.WithLabelValues("variable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.subscribes.WithLabelValues("variable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unsubscribes.WithLabelValues("variable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.subscribeFailures.WithLabelValues("signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pushEvents.WithLabelValues("variable")))
}

func TestCollectorMastership(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.MastershipRequested("edit")
	c.MastershipHeld("edit", 20*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mastershipHeld.WithLabelValues("edit")))

	c.MastershipReleased("edit")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.mastershipHeld.WithLabelValues("edit")))

	c.MastershipDenied("motion", "timeout")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mastershipDenials.WithLabelValues("motion", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mastershipRequests.WithLabelValues("edit")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Subscribed("variable")
		c.Unsubscribed("variable")
		c.SubscribeFailed("variable")
		c.Pushed("variable")
		c.MastershipRequested("edit")
		c.MastershipDenied("edit", "rejected")
		c.MastershipHeld("edit", time.Second)
		c.MastershipReleased("edit")
	})
}
