package variable

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rws-panel/rws-go/internal/rwstest"
	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/rws"
	"github.com/rws-panel/rws-go/pkg/rws/mocks"
)

var (
	counterSym = rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "counter"}
	gridSym    = rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "grid"}
	flagSym    = rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "flag"}
)

func newFake() *rwstest.Controller {
	ctrl := rwstest.New()
	ctrl.AddSymbol(counterSym, "num", "5")
	ctrl.AddSymbol(gridSym, "num", "[[1,2],[3,4]]", 2, 2)
	ctrl.AddSymbol(flagSym, "bool", "FALSE")
	return ctrl
}

func TestNewSelectsCodec(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()

	v, err := New(ctx, ctrl.Data(gridSym))
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, v.Kind())
	assert.Equal(t, []int{2, 2}, v.Properties().Dimensions)
	assert.Equal(t, gridSym.Path(), v.Topic())

	_, err = New(ctx, ctrl.Data(rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "missing"}))
	assert.True(t, rws.IsStatus(err, 404))
}

func TestValueAlwaysFetches(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()

	v, err := New(ctx, ctrl.Data(counterSym))
	require.NoError(t, err)

	got, err := v.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	// Changed behind our back, no push.
	require.NoError(t, ctrl.Data(counterSym).SetRawValue(ctx, "6"))
	got, err = v.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)
}

func TestSetValueTypeMismatch(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()

	v, err := New(ctx, ctrl.Data(counterSym))
	require.NoError(t, err)

	err = v.SetValue(ctx, "seven")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Empty(t, ctrl.Writes(counterSym.Path()), "rejected writes never reach the controller")

	require.NoError(t, v.SetValue(ctx, 7))
	assert.Equal(t, []string{"7"}, ctrl.Writes(counterSym.Path()))
}

func TestSetElement(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()

	v, err := New(ctx, ctrl.Data(gridSym))
	require.NoError(t, err)

	require.NoError(t, v.SetElement(ctx, []int{1, 0}, 30))
	assert.Equal(t, "[[1,2],[30,4]]", ctrl.SymbolValue(gridSym))

	require.NoError(t, v.SetElement(ctx, []int{0}, []float64{9, 8}))
	got, err := v.Value(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]any{[]any{9.0, 8.0}, []any{30.0, 4.0}}, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, v.SetElement(ctx, []int{5, 0}, 1))
	assert.ErrorIs(t, v.SetElement(ctx, []int{0, 0}, "x"), ErrTypeMismatch)
	assert.ErrorIs(t, v.SetElement(ctx, []int{0}, []float64{1, 2, 3}), ErrTypeMismatch)

	scalar, err := New(ctx, ctrl.Data(counterSym))
	require.NoError(t, err)
	assert.ErrorIs(t, scalar.SetElement(ctx, []int{0}, 1), ErrNotIndexable)
}

func TestOnChangedInstallsOneHandleListener(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()
	handle := ctrl.Data(flagSym)

	v, err := New(ctx, handle)
	require.NoError(t, err)

	var a, b []any
	la := eventbus.NewListener(func(ev eventbus.Event) { a = append(a, ev.Data.(Change).Value) })
	lb := eventbus.NewListener(func(ev eventbus.Event) { b = append(b, ev.Data.(Change).Value) })
	assert.True(t, v.OnChanged(la))
	assert.False(t, v.OnChanged(la))
	assert.True(t, v.OnChanged(lb))
	require.NoError(t, v.Subscribe(ctx, false))

	assert.Equal(t, 1, rwstest.ListenerCount(handle))

	ctrl.Push(flagSym, "TRUE")
	assert.Equal(t, []any{true}, a)
	assert.Equal(t, []any{true}, b)

	assert.True(t, v.RemoveListener(la))
	ctrl.Push(flagSym, "FALSE")
	assert.Equal(t, []any{true}, a)
	assert.Equal(t, []any{true, false}, b)

	require.NoError(t, v.Unsubscribe(ctx))
	assert.Equal(t, 1, ctrl.Unsubscribes(rwstest.DataResource(flagSym)))
}

func TestSharedBusTopic(t *testing.T) {
	ctrl := newFake()
	ctx := context.Background()
	bus := eventbus.New()

	v, err := New(ctx, ctrl.Data(counterSym), WithBus(bus, "rapid:counter"))
	require.NoError(t, err)
	assert.Equal(t, "rapid:counter", v.Topic())

	var got []Change
	bus.On("rapid:counter", eventbus.NewListener(func(ev eventbus.Event) {
		got = append(got, ev.Data.(Change))
	}))
	require.NoError(t, v.Subscribe(ctx, true))

	ctrl.Push(counterSym, "8")
	assert.Equal(t, []Change{{Raw: "5", Value: 5.0}, {Raw: "8", Value: 8.0}}, got)
}

func TestUndecodablePushIsDropped(t *testing.T) {
	handle := &mocks.DataHandle{}
	handle.On("Symbol").Return(gridSym)
	handle.On("OnChanged", mock.Anything).Return()
	handle.On("Subscribe", mock.Anything, false).Return(nil)

	v := NewWithProperties(handle, rws.Properties{DataType: "num"})
	calls := 0
	v.OnChanged(eventbus.NewListener(func(eventbus.Event) { calls++ }))
	require.NoError(t, v.Subscribe(context.Background(), false))

	handle.Push("not a number")
	handle.Push("3")
	assert.Equal(t, 1, calls)
	handle.AssertNumberOfCalls(t, "OnChanged", 1)
}

func TestValueErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	handle := &mocks.DataHandle{}
	handle.On("Symbol").Return(counterSym)
	handle.On("Value", mock.Anything).Return("", boom)

	v := NewWithProperties(handle, rws.Properties{DataType: "num"})
	_, err := v.Value(context.Background())
	assert.ErrorIs(t, err, boom)
	handle.AssertExpectations(t)
}
