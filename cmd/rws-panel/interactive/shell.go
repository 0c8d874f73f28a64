// Package interactive provides the interactive command-line interface
// for rws-panel.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/rws-panel/rws-go/pkg/eventbus"
	"github.com/rws-panel/rws-go/pkg/mastership"
	"github.com/rws-panel/rws-go/pkg/panel"
	"github.com/rws-panel/rws-go/pkg/rws"
	"github.com/rws-panel/rws-go/pkg/variable"
)

// watch is one shell-owned subscription.
type watch struct {
	listener eventbus.Listener
	release  func(ctx context.Context) error
	remove   func(l eventbus.Listener) bool
}

// Shell handles interactive mode for rws-panel.
type Shell struct {
	panel *panel.Panel
	rl    *readline.Instance
	out   io.Writer

	mu      sync.Mutex
	watches map[string]watch

	closeTerminal sync.Once

	statusListener eventbus.Listener
}

// New creates a shell reading commands from rl.
func New(p *panel.Panel, rl *readline.Instance) *Shell {
	return newShell(p, rl, rl.Stdout())
}

// NewWithWriter creates a shell without a terminal. Commands are fed
// through Execute and output goes to w.
func NewWithWriter(p *panel.Panel, w io.Writer) *Shell {
	return newShell(p, nil, &lockedWriter{w: w})
}

func newShell(p *panel.Panel, rl *readline.Instance, out io.Writer) *Shell {
	s := &Shell{
		panel:   p,
		rl:      rl,
		out:     out,
		watches: make(map[string]watch),
	}
	s.statusListener = eventbus.NewListener(s.handleEvent)
	p.Events().On(panel.TopicMastership, s.statusListener)
	p.Events().On(panel.TopicSubscriptionBlocked, s.statusListener)
	return s
}

// Stdout returns a writer that coordinates with the prompt. Use it for log
// output.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.Interrupt()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Interrupt closes the terminal, making a pending Run return. It is safe to
// call more than once.
func (s *Shell) Interrupt() {
	if s.rl == nil {
		return
	}
	s.closeTerminal.Do(func() { s.rl.Close() })
}

// Execute runs one command line. It returns false when the shell should
// exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "get", "g":
		s.cmdGet(ctx, args)

	case "set", "s":
		s.cmdSet(ctx, args)

	case "watch", "w":
		s.cmdWatch(ctx, args)

	case "unwatch", "uw":
		s.cmdUnwatch(ctx, args)

	case "io":
		s.cmdIO(ctx, args)

	case "iowatch":
		s.cmdIOWatch(ctx, args)

	case "iounwatch":
		s.cmdIOUnwatch(ctx, args)

	case "block":
		s.cmdBlock(args)

	case "mastership", "ms":
		s.cmdMastership(args)

	case "jog":
		s.cmdJog(ctx, args)

	case "stop":
		s.cmdStop()

	case "status":
		s.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

// Close drops every shell-owned subscription and stops listening for
// status events.
func (s *Shell) Close(ctx context.Context) error {
	s.panel.Events().Remove(panel.TopicMastership, s.statusListener)
	s.panel.Events().Remove(panel.TopicSubscriptionBlocked, s.statusListener)

	s.mu.Lock()
	watches := s.watches
	s.watches = make(map[string]watch)
	s.mu.Unlock()

	var errs []error
	for _, w := range watches {
		w.remove(w.listener)
		if err := w.release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
RWS Panel Commands:
  RAPID data:
    get <task/module/name>            - Read a variable
    set <task/module/name> <value>    - Write a variable (takes edit mastership)
    watch <task/module/name>          - Print every change of a variable
    unwatch <task/module/name>        - Stop watching a variable

  I/O signals:
    io <[network/device/]name>        - Read a signal
    io <[network/device/]name> <val>  - Write a signal
    iowatch <[network/device/]name>   - Print every change of a signal
    iounwatch <[network/device/]name> - Stop watching a signal

  Motion:
    jog <a1> [a2 .. a6] [mechunit]    - Start or update jogging (axis speeds)
    stop                              - Stop jogging

  General:
    mastership [edit|motion]          - Show mastership state
    block on|off                      - Block or allow new subscriptions
    status                            - Show panel status
    help                              - Show this help
    quit                              - Exit

  Values:
    numbers 7, arrays [1,2,3], bools true/false, strings "text"`)
}

func (s *Shell) handleEvent(ev eventbus.Event) {
	switch data := ev.Data.(type) {
	case mastership.StateChange:
		if data.Err != nil {
			fmt.Fprintf(s.out, "[MASTERSHIP] %s: %s -> %s (%v)\n", data.Domain, data.Old, data.New, data.Err)
			return
		}
		fmt.Fprintf(s.out, "[MASTERSHIP] %s: %s -> %s\n", data.Domain, data.Old, data.New)
	case bool:
		if ev.Topic == panel.TopicSubscriptionBlocked {
			fmt.Fprintf(s.out, "[SUBSCRIPTIONS] blocked=%t\n", data)
		}
	}
}

func (s *Shell) cmdGet(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: get <task/module/name>")
		return
	}
	ref, err := ParseVariableRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid variable: %v\n", err)
		return
	}
	v, err := s.panel.ReadVariable(ctx, ref.Task, ref.Module, ref.Name)
	if err != nil {
		fmt.Fprintf(s.out, "Read failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s = %s\n", ref, FormatValue(v))
}

func (s *Shell) cmdSet(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: set <task/module/name> <value>")
		return
	}
	ref, err := ParseVariableRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid variable: %v\n", err)
		return
	}
	raw := strings.Join(args[1:], " ")
	err = s.panel.SetVariable(ctx, ref.Task, ref.Module, ref.Name, ParseValue(raw))
	if errors.Is(err, variable.ErrTypeMismatch) {
		// Unquoted text and RAPID record literals go through as strings.
		err = s.panel.SetVariable(ctx, ref.Task, ref.Module, ref.Name, raw)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s written\n", ref)
}

func (s *Shell) cmdWatch(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: watch <task/module/name>")
		return
	}
	ref, err := ParseVariableRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid variable: %v\n", err)
		return
	}
	id := "var:" + ref.String()
	if s.watching(id) {
		fmt.Fprintf(s.out, "Already watching %s\n", ref)
		return
	}

	v, err := s.panel.AcquireVariable(ctx, ref.Task, ref.Module, ref.Name)
	if err != nil {
		fmt.Fprintf(s.out, "Watch failed: %v\n", err)
		return
	}
	l := s.changePrinter(ref.String())
	v.OnChanged(l)
	s.addWatch(id, watch{
		listener: l,
		remove:   v.RemoveListener,
		release: func(ctx context.Context) error {
			return s.panel.ReleaseVariable(ctx, ref.Task, ref.Module, ref.Name)
		},
	})
	fmt.Fprintf(s.out, "Watching %s (%s)\n", ref, v.Properties().DataType)
}

func (s *Shell) cmdUnwatch(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unwatch <task/module/name>")
		return
	}
	ref, err := ParseVariableRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid variable: %v\n", err)
		return
	}
	s.unwatch(ctx, "var:"+ref.String(), ref.String())
}

func (s *Shell) cmdIO(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: io <[network/device/]name> [value]")
		return
	}
	ref, err := ParseSignalRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid signal: %v\n", err)
		return
	}

	if len(args) == 1 {
		v, err := s.panel.ReadSignal(ctx, ref.Network, ref.Device, ref.Name)
		if err != nil {
			fmt.Fprintf(s.out, "Read failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "%s = %s\n", ref, FormatValue(v))
		return
	}

	val := ParseValue(strings.Join(args[1:], " "))
	err = s.panel.SetSignal(ctx, ref.Network, ref.Device, ref.Name, val)
	if n, isInt := val.(int); isInt && (n == 0 || n == 1) && errors.Is(err, variable.ErrTypeMismatch) {
		// Digital signals take 0 and 1.
		err = s.panel.SetSignal(ctx, ref.Network, ref.Device, ref.Name, n == 1)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s written\n", ref)
}

func (s *Shell) cmdIOWatch(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: iowatch <[network/device/]name>")
		return
	}
	ref, err := ParseSignalRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid signal: %v\n", err)
		return
	}
	id := "io:" + ref.Path()
	if s.watching(id) {
		fmt.Fprintf(s.out, "Already watching %s\n", ref)
		return
	}

	sig, err := s.panel.AcquireSignal(ctx, ref.Network, ref.Device, ref.Name)
	if err != nil {
		fmt.Fprintf(s.out, "Watch failed: %v\n", err)
		return
	}
	l := s.changePrinter(ref.Path())
	sig.OnChanged(l)
	s.addWatch(id, watch{
		listener: l,
		remove:   sig.RemoveListener,
		release: func(ctx context.Context) error {
			return s.panel.ReleaseSignal(ctx, ref.Network, ref.Device, ref.Name)
		},
	})
	fmt.Fprintf(s.out, "Watching %s (%s)\n", ref, sig.Type())
}

func (s *Shell) cmdIOUnwatch(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: iounwatch <[network/device/]name>")
		return
	}
	ref, err := ParseSignalRef(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid signal: %v\n", err)
		return
	}
	s.unwatch(ctx, "io:"+ref.Path(), ref.Path())
}

func (s *Shell) changePrinter(label string) eventbus.Listener {
	return eventbus.NewListener(func(ev eventbus.Event) {
		if ch, ok := ev.Data.(variable.Change); ok {
			fmt.Fprintf(s.out, "[CHANGE] %s = %s\n", label, FormatValue(ch.Value))
		}
	})
}

func (s *Shell) watching(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watches[id]
	return ok
}

func (s *Shell) addWatch(id string, w watch) {
	s.mu.Lock()
	s.watches[id] = w
	s.mu.Unlock()
}

func (s *Shell) unwatch(ctx context.Context, id, label string) {
	s.mu.Lock()
	w, ok := s.watches[id]
	delete(s.watches, id)
	s.mu.Unlock()
	if !ok {
		fmt.Fprintf(s.out, "Not watching %s\n", label)
		return
	}

	w.remove(w.listener)
	if err := w.release(ctx); err != nil {
		fmt.Fprintf(s.out, "Unsubscribe failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Stopped watching %s\n", label)
}

func (s *Shell) cmdBlock(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Subscriptions blocked: %t\n", s.panel.SubscriptionsBlocked())
		return
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		s.panel.SetSubscriptionsBlocked(true)
	case "off", "false", "0":
		s.panel.SetSubscriptionsBlocked(false)
	default:
		fmt.Fprintln(s.out, "Usage: block on|off")
	}
}

func (s *Shell) cmdMastership(args []string) {
	domains := []rws.Domain{rws.DomainEdit, rws.DomainMotion}
	if len(args) == 1 {
		d, err := ParseDomain(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			return
		}
		domains = []rws.Domain{d}
	}
	coord := s.panel.Mastership()
	for _, d := range domains {
		fmt.Fprintf(s.out, "  %-7s %s (holders: %d)\n", d, coord.State(d), coord.Holders(d))
	}
}

func (s *Shell) cmdJog(ctx context.Context, args []string) {
	cmd, err := ParseJogArgs(args)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid jog command: %v\n", err)
		fmt.Fprintln(s.out, "Usage: jog <a1> [a2 .. a6] [mechunit]")
		return
	}

	jogger := s.panel.Jogger()
	if jogger.Running() {
		if err := jogger.Update(cmd.Axes); err == nil {
			fmt.Fprintf(s.out, "Jog updated: %v\n", cmd.Axes)
			return
		}
	}
	if err := jogger.Start(ctx, cmd); err != nil {
		fmt.Fprintf(s.out, "Jog failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Jogging %v\n", cmd.Axes)
}

func (s *Shell) cmdStop() {
	jogger := s.panel.Jogger()
	if !jogger.Running() {
		fmt.Fprintln(s.out, "Not jogging")
		return
	}
	jogger.Stop()
	if err := jogger.Wait(); err != nil {
		fmt.Fprintf(s.out, "Jog ended with error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Jog stopped after %d command(s)\n", jogger.Commands())
}

func (s *Shell) cmdStatus() {
	fmt.Fprintln(s.out, "\nPanel Status:")
	fmt.Fprintln(s.out, "-------------------------------------------")
	fmt.Fprintf(s.out, "  Subscriptions blocked: %t\n", s.panel.SubscriptionsBlocked())

	fmt.Fprintf(s.out, "  Variables (%d):\n", s.panel.Variables().Count())
	for _, k := range s.panel.Variables().Keys() {
		fmt.Fprintf(s.out, "    %s\n", k)
	}
	fmt.Fprintf(s.out, "  Signals (%d):\n", s.panel.Signals().Count())
	for _, k := range s.panel.Signals().Keys() {
		fmt.Fprintf(s.out, "    %s\n", k)
	}

	s.mu.Lock()
	ids := make([]string, 0, len(s.watches))
	for id := range s.watches {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	fmt.Fprintf(s.out, "  Watches (%d):\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(s.out, "    %s\n", id)
	}

	fmt.Fprintln(s.out, "  Mastership:")
	s.cmdMastership(nil)
	fmt.Fprintf(s.out, "  Jogging: %t\n", s.panel.Jogger().Running())
}

// lockedWriter serializes writes from the shell and bus callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
