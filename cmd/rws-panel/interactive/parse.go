package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

var errEmptyRef = errors.New("empty reference")

// ParseVariableRef parses "task/module/name", optionally prefixed with
// "RAPID/".
func ParseVariableRef(s string) (rws.Symbol, error) {
	if s == "" {
		return rws.Symbol{}, errEmptyRef
	}
	parts := strings.Split(strings.TrimPrefix(s, "RAPID/"), "/")
	if len(parts) != 3 {
		return rws.Symbol{}, fmt.Errorf("%q: expected task/module/name", s)
	}
	for _, p := range parts {
		if p == "" {
			return rws.Symbol{}, fmt.Errorf("%q: empty path segment", s)
		}
	}
	return rws.Symbol{Task: parts[0], Module: parts[1], Name: parts[2]}, nil
}

// ParseSignalRef parses "name" or "network/device/name".
func ParseSignalRef(s string) (rws.SignalRef, error) {
	if s == "" {
		return rws.SignalRef{}, errEmptyRef
	}
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		return rws.SignalRef{Name: parts[0]}, nil
	case 3:
		for _, p := range parts {
			if p == "" {
				return rws.SignalRef{}, fmt.Errorf("%q: empty path segment", s)
			}
		}
		return rws.SignalRef{Network: parts[0], Device: parts[1], Name: parts[2]}, nil
	default:
		return rws.SignalRef{}, fmt.Errorf("%q: expected name or network/device/name", s)
	}
}

// ParseDomain parses a mastership domain name.
func ParseDomain(s string) (rws.Domain, error) {
	switch strings.ToLower(s) {
	case "edit":
		return rws.DomainEdit, nil
	case "motion":
		return rws.DomainMotion, nil
	default:
		return "", fmt.Errorf("unknown domain: %s (use: edit, motion)", s)
	}
}

// ParseValue interprets a typed value in YAML flow syntax: numbers, bools,
// quoted strings and nested arrays. Anything that does not parse is
// returned as the raw string.
func ParseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	if _, isMap := v.(map[string]any); isMap {
		return s
	}
	return v
}

// FormatValue renders a decoded value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	if lit, err := rapid.FormatNumeric(v); err == nil {
		return lit
	}
	return fmt.Sprint(v)
}

// ParseJogArgs parses "a1 [a2 .. a6] [mechunit]". Missing axes are zero.
func ParseJogArgs(args []string) (rws.JogCommand, error) {
	var cmd rws.JogCommand
	if len(args) == 0 {
		return cmd, errors.New("at least one axis speed required")
	}

	n := 0
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			if i == len(args)-1 && n > 0 {
				cmd.Mechunit = a
				break
			}
			return cmd, fmt.Errorf("axis %d: %q is not an integer", i+1, a)
		}
		if n == len(cmd.Axes) {
			return cmd, fmt.Errorf("at most %d axes", len(cmd.Axes))
		}
		cmd.Axes[n] = v
		n++
	}
	return cmd, nil
}
