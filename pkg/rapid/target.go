package rapid

import (
	"fmt"
	"strings"
)

// UnusedAxis is the value the controller reports for an external axis that
// is not configured.
const UnusedAxis = 9e9

// Position is the pos record (x, y, z).
type Position struct {
	X, Y, Z Millimeters
}

// Orientation is the orient record, a unit quaternion.
type Orientation struct {
	Q1, Q2, Q3, Q4 float64
}

// Identity is the orientation of the base frame.
var Identity = Orientation{Q1: 1}

// ConfData is the confdata record (axis quadrants and configuration).
type ConfData struct {
	Cf1, Cf4, Cf6, Cfx int
}

// ExtAxes is the extjoint record. Unconfigured axes hold UnusedAxis.
type ExtAxes [6]float64

// NoExtAxes returns an ExtAxes with every axis unused.
func NoExtAxes() ExtAxes {
	return ExtAxes{UnusedAxis, UnusedAxis, UnusedAxis, UnusedAxis, UnusedAxis, UnusedAxis}
}

// Used reports whether axis i (zero-based) is configured.
func (e ExtAxes) Used(i int) bool {
	return i >= 0 && i < len(e) && e[i] < UnusedAxis
}

// RobTarget is a cartesian robot position.
type RobTarget struct {
	Trans   Position
	Rot     Orientation
	RobConf ConfData
	ExtAx   ExtAxes
}

// JointTarget is a robot position expressed as axis angles.
type JointTarget struct {
	RobAx [6]Degrees
	ExtAx ExtAxes
}

// String formats the robtarget as a RAPID literal.
func (t RobTarget) String() string {
	var sb strings.Builder
	sb.WriteString("[[")
	writeNums(&sb, float64(t.Trans.X), float64(t.Trans.Y), float64(t.Trans.Z))
	sb.WriteString("],[")
	writeNums(&sb, t.Rot.Q1, t.Rot.Q2, t.Rot.Q3, t.Rot.Q4)
	sb.WriteString("],[")
	writeNums(&sb, float64(t.RobConf.Cf1), float64(t.RobConf.Cf4), float64(t.RobConf.Cf6), float64(t.RobConf.Cfx))
	sb.WriteString("],[")
	writeNums(&sb, t.ExtAx[:]...)
	sb.WriteString("]]")
	return sb.String()
}

// String formats the jointtarget as a RAPID literal.
func (t JointTarget) String() string {
	var sb strings.Builder
	sb.WriteString("[[")
	for i, d := range t.RobAx {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(FormatNum(float64(d)))
	}
	sb.WriteString("],[")
	writeNums(&sb, t.ExtAx[:]...)
	sb.WriteString("]]")
	return sb.String()
}

// RadiansAt returns axis i (zero-based) in radians.
func (t JointTarget) RadiansAt(i int) Radians {
	return t.RobAx[i].Radians()
}

func writeNums(sb *strings.Builder, nums ...float64) {
	for i, f := range nums {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(FormatNum(f))
	}
}

// ParseRobTarget parses a robtarget literal.
func ParseRobTarget(lit string) (RobTarget, error) {
	var t RobTarget
	parts, err := parseRecord(lit, "robtarget", 3, 4, 4, 6)
	if err != nil {
		return t, err
	}
	t.Trans = Position{X: Millimeters(parts[0][0]), Y: Millimeters(parts[0][1]), Z: Millimeters(parts[0][2])}
	t.Rot = Orientation{Q1: parts[1][0], Q2: parts[1][1], Q3: parts[1][2], Q4: parts[1][3]}
	t.RobConf = ConfData{
		Cf1: int(parts[2][0]),
		Cf4: int(parts[2][1]),
		Cf6: int(parts[2][2]),
		Cfx: int(parts[2][3]),
	}
	copy(t.ExtAx[:], parts[3])
	return t, nil
}

// ParseJointTarget parses a jointtarget literal.
func ParseJointTarget(lit string) (JointTarget, error) {
	var t JointTarget
	parts, err := parseRecord(lit, "jointtarget", 6, 6)
	if err != nil {
		return t, err
	}
	for i, f := range parts[0] {
		t.RobAx[i] = Degrees(f)
	}
	copy(t.ExtAx[:], parts[1])
	return t, nil
}

// parseRecord parses lit as a list of numeric lists with the given lengths.
func parseRecord(lit, typeName string, lengths ...int) ([][]float64, error) {
	v, err := ParseNumeric(lit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typeName, err)
	}
	outer, ok := v.([]any)
	if !ok || len(outer) != len(lengths) {
		return nil, fmt.Errorf("%s: %w: expected %d components", typeName, ErrSyntax, len(lengths))
	}
	result := make([][]float64, len(lengths))
	for i, want := range lengths {
		inner, ok := outer[i].([]any)
		if !ok || len(inner) != want {
			return nil, fmt.Errorf("%s: %w: component %d expects %d values", typeName, ErrSyntax, i+1, want)
		}
		row := make([]float64, want)
		for j, x := range inner {
			f, ok := x.(float64)
			if !ok {
				return nil, fmt.Errorf("%s: %w: component %d is nested", typeName, ErrSyntax, i+1)
			}
			row[j] = f
		}
		result[i] = row
	}
	return result, nil
}
