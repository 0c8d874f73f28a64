package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusOnDeduplicates(t *testing.T) {
	bus := New()
	calls := 0
	l := NewListener(func(Event) { calls++ })

	assert.True(t, bus.On("topic", l))
	assert.False(t, bus.On("topic", l), "second registration should be a no-op")
	assert.Equal(t, 1, bus.Count("topic"))

	bus.Trigger("topic", nil)
	assert.Equal(t, 1, calls)
}

func TestBusSameListenerDifferentTopics(t *testing.T) {
	bus := New()
	var got []string
	l := NewListener(func(ev Event) { got = append(got, ev.Topic) })

	require.True(t, bus.On("a", l))
	require.True(t, bus.On("b", l))

	bus.Trigger("a", nil)
	bus.Trigger("b", nil)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBusTriggerRegistrationOrder(t *testing.T) {
	bus := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.On("t", NewListener(func(Event) { order = append(order, i) }))
	}

	n := bus.Trigger("t", "payload")
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBusTriggerPassesData(t *testing.T) {
	bus := New()
	var got Event
	bus.On("value", NewListener(func(ev Event) { got = ev }))

	bus.Trigger("value", 42)
	assert.Equal(t, Event{Topic: "value", Data: 42}, got)
}

func TestBusListenerAddedDuringTriggerNotInvoked(t *testing.T) {
	bus := New()
	lateCalls := 0
	late := NewListener(func(Event) { lateCalls++ })

	bus.On("t", NewListener(func(Event) { bus.On("t", late) }))

	bus.Trigger("t", nil)
	assert.Equal(t, 0, lateCalls, "listener registered during trigger must wait for the next trigger")

	bus.Trigger("t", nil)
	assert.Equal(t, 1, lateCalls)
}

func TestBusOffClearsTopic(t *testing.T) {
	bus := New()
	calls := 0
	bus.On("t", NewListener(func(Event) { calls++ }))
	bus.On("t", NewListener(func(Event) { calls++ }))
	bus.On("other", NewListener(func(Event) { calls += 100 }))

	bus.Off("t")
	assert.Equal(t, 0, bus.Trigger("t", nil))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, bus.Count("other"))
}

func TestBusRemoveSingleListener(t *testing.T) {
	bus := New()
	var got []string
	a := NewListener(func(Event) { got = append(got, "a") })
	b := NewListener(func(Event) { got = append(got, "b") })
	bus.On("t", a)
	bus.On("t", b)

	assert.True(t, bus.Remove("t", a))
	assert.False(t, bus.Remove("t", a))

	bus.Trigger("t", nil)
	assert.Equal(t, []string{"b"}, got)

	assert.True(t, bus.Remove("t", b))
	assert.Empty(t, bus.Topics())
}

type valueListener struct {
	calls *int
}

func (v valueListener) HandleEvent(Event) { *v.calls++ }

func TestBusComparableValueListener(t *testing.T) {
	bus := New()
	calls := 0
	l := valueListener{calls: &calls}

	assert.True(t, bus.On("t", l))
	assert.False(t, bus.On("t", valueListener{calls: &calls}))

	bus.Trigger("t", nil)
	assert.Equal(t, 1, calls)
}

type sliceListener []int

func (sliceListener) HandleEvent(Event) {}

func TestBusNonComparableListenerDoesNotPanic(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.On("t", sliceListener{1})
		bus.On("t", sliceListener{1})
	})
	assert.Equal(t, 2, bus.Count("t"))
}

func TestBusNilListener(t *testing.T) {
	bus := New()
	assert.False(t, bus.On("t", nil))
	assert.Equal(t, 0, bus.Count("t"))
}

func TestBusConcurrentUse(t *testing.T) {
	bus := New()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewListener(func(Event) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			bus.On("t", l)
			bus.Trigger("t", nil)
			bus.Remove("t", l)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.Count("t"))
	assert.GreaterOrEqual(t, total, 20)
}
