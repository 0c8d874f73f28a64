package interactive

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rws-panel/rws-go/internal/rwstest"
	"github.com/rws-panel/rws-go/pkg/motion"
	"github.com/rws-panel/rws-go/pkg/panel"
	"github.com/rws-panel/rws-go/pkg/rws"
)

var (
	n1  = rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "n1"}
	msg = rws.Symbol{Task: "T_ROB1", Module: "MainModule", Name: "msg"}
	do1 = rws.SignalRef{Network: "Local", Device: "DRV_1", Name: "DO1"}
)

// syncBuffer lets the test read output written from bus callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestShell(t *testing.T) (*Shell, *rwstest.Controller, *syncBuffer) {
	t.Helper()
	ctrl := rwstest.New()
	ctrl.AddSymbol(n1, "num", "0")
	ctrl.AddSymbol(msg, "string", `"idle"`)
	ctrl.AddSignal(do1, rws.SignalDO, "0")

	cfg := panel.DefaultConfig()
	cfg.RaiseInitial = false
	cfg.Jog = motion.Config{Interval: 5 * time.Millisecond}
	p := panel.New(ctrl, cfg)

	out := &syncBuffer{}
	s := NewWithWriter(p, out)
	t.Cleanup(func() {
		_ = s.Close(context.Background())
		_ = p.Close(context.Background())
	})
	return s, ctrl, out
}

func TestGet(t *testing.T) {
	s, _, out := newTestShell(t)

	assert.True(t, s.Execute(context.Background(), "get T_ROB1/MainModule/msg"))
	assert.Contains(t, out.String(), `RAPID/T_ROB1/MainModule/msg = "idle"`)

	out.Reset()
	s.Execute(context.Background(), "get T_ROB1/MainModule/missing")
	assert.Contains(t, out.String(), "Read failed")

	out.Reset()
	s.Execute(context.Background(), "get nonsense")
	assert.Contains(t, out.String(), "Invalid variable")
}

func TestSetTakesEditMastership(t *testing.T) {
	s, ctrl, out := newTestShell(t)

	s.Execute(context.Background(), "set T_ROB1/MainModule/n1 7")

	assert.Equal(t, []string{"7"}, ctrl.Writes(n1.Path()))
	output := out.String()
	assert.Contains(t, output, "[MASTERSHIP] edit: FREE -> REQUESTING")
	assert.Contains(t, output, "[MASTERSHIP] edit: RELEASING -> FREE")
	assert.Contains(t, output, "RAPID/T_ROB1/MainModule/n1 written")
}

func TestSetStringFallsBackToRawText(t *testing.T) {
	s, ctrl, _ := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "set T_ROB1/MainModule/msg hello world")
	s.Execute(ctx, "set T_ROB1/MainModule/msg 5")

	assert.Equal(t, []string{`"hello world"`, `"5"`}, ctrl.Writes(msg.Path()))
}

func TestSetTypeMismatchReported(t *testing.T) {
	s, ctrl, out := newTestShell(t)

	s.Execute(context.Background(), "set T_ROB1/MainModule/n1 seven")

	assert.Empty(t, ctrl.Writes(n1.Path()))
	assert.Contains(t, out.String(), "Write failed")
}

func TestWatchSharesSubscription(t *testing.T) {
	s, ctrl, out := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "watch T_ROB1/MainModule/n1")
	assert.Contains(t, out.String(), "Watching RAPID/T_ROB1/MainModule/n1 (num)")
	assert.Equal(t, 1, ctrl.Subscribes(rwstest.DataResource(n1)))

	s.Execute(ctx, "watch T_ROB1/MainModule/n1")
	assert.Contains(t, out.String(), "Already watching")
	assert.Equal(t, 1, ctrl.Subscribes(rwstest.DataResource(n1)))

	ctrl.Push(n1, "3")
	assert.Contains(t, out.String(), "[CHANGE] RAPID/T_ROB1/MainModule/n1 = 3")

	s.Execute(ctx, "unwatch T_ROB1/MainModule/n1")
	assert.Equal(t, 1, ctrl.Unsubscribes(rwstest.DataResource(n1)))
	assert.Contains(t, out.String(), "Stopped watching")

	out.Reset()
	s.Execute(ctx, "unwatch T_ROB1/MainModule/n1")
	assert.Contains(t, out.String(), "Not watching")
}

func TestSignalCommands(t *testing.T) {
	s, ctrl, out := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "iowatch Local/DRV_1/DO1")
	assert.Contains(t, out.String(), "Watching Local/DRV_1/DO1 (DO)")

	s.Execute(ctx, "io Local/DRV_1/DO1 1")
	assert.Equal(t, []string{"1"}, ctrl.Writes(do1.Path()))
	assert.Equal(t, 0, ctrl.FakeMastership().Requests(rws.DomainEdit))

	out.Reset()
	s.Execute(ctx, "io Local/DRV_1/DO1")
	assert.Contains(t, out.String(), "Local/DRV_1/DO1 = true")

	ctrl.PushSignal(do1, "0")
	assert.Contains(t, out.String(), "[CHANGE] Local/DRV_1/DO1 = false")

	s.Execute(ctx, "iounwatch Local/DRV_1/DO1")
	assert.Equal(t, 1, ctrl.Unsubscribes(rwstest.SignalResource(do1)))
}

func TestBlockCommand(t *testing.T) {
	s, ctrl, out := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "block on")
	assert.Contains(t, out.String(), "[SUBSCRIPTIONS] blocked=true")

	s.Execute(ctx, "watch T_ROB1/MainModule/n1")
	assert.Equal(t, 0, ctrl.Subscribes(rwstest.DataResource(n1)))

	out.Reset()
	s.Execute(ctx, "block")
	assert.Contains(t, out.String(), "Subscriptions blocked: true")

	out.Reset()
	s.Execute(ctx, "block maybe")
	assert.Contains(t, out.String(), "Usage: block on|off")
}

func TestMastershipCommand(t *testing.T) {
	s, _, out := newTestShell(t)

	s.Execute(context.Background(), "mastership")
	assert.Contains(t, out.String(), "edit    FREE (holders: 0)")
	assert.Contains(t, out.String(), "motion  FREE (holders: 0)")

	out.Reset()
	s.Execute(context.Background(), "ms program")
	assert.Contains(t, out.String(), "unknown domain")
}

func TestJogCommands(t *testing.T) {
	s, ctrl, out := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "jog 10 0 0 0 0 0 ROB_1")
	assert.Contains(t, out.String(), "Jogging [10 0 0 0 0 0]")
	require.Eventually(t, func() bool { return len(ctrl.FakeMotion().Jogs()) > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, "ROB_1", ctrl.FakeMotion().Jogs()[0].Mechunit)

	s.Execute(ctx, "jog 20")
	assert.Contains(t, out.String(), "Jog updated: [20 0 0 0 0 0]")

	s.Execute(ctx, "stop")
	assert.Contains(t, out.String(), "Jog stopped after")
	assert.Equal(t, 1, ctrl.FakeMastership().Releases(rws.DomainMotion))

	out.Reset()
	s.Execute(ctx, "stop")
	assert.Contains(t, out.String(), "Not jogging")

	s.Execute(ctx, "jog fast")
	assert.Contains(t, out.String(), "Invalid jog command")
}

func TestStatus(t *testing.T) {
	s, _, out := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "watch T_ROB1/MainModule/n1")
	s.Execute(ctx, "status")

	output := out.String()
	assert.Contains(t, output, "Variables (1):")
	assert.Contains(t, output, "rapid:T_ROB1/MainModule/n1")
	assert.Contains(t, output, "var:RAPID/T_ROB1/MainModule/n1")
	assert.Contains(t, output, "Jogging: false")
}

func TestUnknownAndQuit(t *testing.T) {
	s, _, out := newTestShell(t)
	ctx := context.Background()

	assert.True(t, s.Execute(ctx, "   "))
	assert.True(t, s.Execute(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.False(t, s.Execute(ctx, "quit"))
}

func TestCloseReleasesWatches(t *testing.T) {
	s, ctrl, _ := newTestShell(t)
	ctx := context.Background()

	s.Execute(ctx, "watch T_ROB1/MainModule/n1")
	s.Execute(ctx, "iowatch Local/DRV_1/DO1")

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, ctrl.Unsubscribes(rwstest.DataResource(n1)))
	assert.Equal(t, 1, ctrl.Unsubscribes(rwstest.SignalResource(do1)))
}
