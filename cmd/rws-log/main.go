// Command rws-log inspects protocol captures written by rws-panel
// -protocol-log.
//
// Usage:
//
//	rws-log <command> [flags] <capture.rlog>
//
// Examples:
//
//	# Everything the controller pushed
//	rws-log view -layer subscription panel.rlog
//
//	# Mastership and channel transitions of one session
//	rws-log view -category state -session 0f1e2d3c-... panel.rlog
//
//	# One variable's traffic as CSV
//	rws-log export -format csv -resource /rw/rapid/symbol/RAPID/T_ROB1/MainModule/n1 panel.rlog
//
//	# Cut the first minute into its own capture
//	rws-log filter -until 2026-03-04T09:31:00Z -o first-minute.rlog panel.rlog
//
//	# Summary
//	rws-log stats panel.rlog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rws-panel/rws-go/cmd/rws-log/commands"
)

// errUsage reports bad invocation after usage has been printed.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(args []string, stdout, stderr io.Writer) error
}

var commandTable = []command{
	{"view", "Print events one per line", runView},
	{"export", "Convert events to JSON lines or CSV", runExport},
	{"filter", "Copy selected events into a new capture", runFilter},
	{"stats", "Summarize a capture", runStats},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "-help" || name == "--help" {
		printUsage(stdout)
		return 0
	}
	for _, c := range commandTable {
		if c.name != name {
			continue
		}
		err := c.run(args[1:], stdout, stderr)
		switch {
		case err == nil:
			return 0
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return 2
		default:
			fmt.Fprintf(stderr, "rws-log %s: %v\n", name, err)
			return 1
		}
	}
	fmt.Fprintf(stderr, "rws-log: unknown command %q\n\n", name)
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rws-log <command> [flags] <capture.rlog>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commandTable {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "rws-log <command> -h" for the flags of a command.`)
}

// newFlagSet returns a flag set whose usage names the command and its
// positional capture argument.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rws-log %s [flags] <capture.rlog>\n\nFlags:\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and returns the single capture path.
func parse(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "exactly one capture file is required")
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func runView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", stderr)
	var sel commands.Selection
	sel.Register(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	_, err = commands.RunView(path, sel, stdout)
	return err
}

func runExport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	var sel commands.Selection
	sel.Register(fs)
	format := fs.String("format", "jsonl", "Output format ("+strings.Join(commands.ExportFormats, ", ")+")")
	output := fs.String("o", "", "Write to this file instead of stdout")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := commands.RunExport(path, *format, sel, w)
	if err != nil {
		return err
	}
	if *output != "" {
		fmt.Fprintf(stderr, "exported %d events to %s\n", n, *output)
	}
	return nil
}

func runFilter(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("filter", stderr)
	var sel commands.Selection
	sel.Register(fs)
	output := fs.String("o", "", "Output capture (required)")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		fmt.Fprintln(stderr, "-o is required")
		fs.Usage()
		return errUsage
	}

	n, err := commands.RunFilter(path, *output, sel)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "kept %d events in %s\n", n, *output)
	return nil
}

func runStats(args []string, stdout, stderr io.Writer) error {
	path, err := parse(newFlagSet("stats", stderr), args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, stdout)
}
