package motion

import (
	"context"
	"errors"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// ErrNoMechunit is returned when no mechanical unit is given.
var ErrNoMechunit = errors.New("mechanical unit required")

// Default frames used for inverse kinematics.
const (
	DefaultTool       = "tool0"
	DefaultWorkObject = "wobj0"
)

// QueryOption adjusts an inverse kinematics query.
type QueryOption func(*rws.CartesianQuery)

// WithCurrent sets the joint position the solution should stay close to.
func WithCurrent(jt rapid.JointTarget) QueryOption {
	return func(q *rws.CartesianQuery) { q.Current = jt }
}

// WithTool sets the tool frame.
func WithTool(name string) QueryOption {
	return func(q *rws.CartesianQuery) { q.Tool = name }
}

// WithWorkObject sets the work object frame.
func WithWorkObject(name string) QueryOption {
	return func(q *rws.CartesianQuery) { q.WObj = name }
}

// JointsFromCartesian returns the joint solution for target on mechunit.
func JointsFromCartesian(ctx context.Context, api rws.MotionAPI, mechunit string, target rapid.RobTarget, opts ...QueryOption) (rapid.JointTarget, error) {
	if mechunit == "" {
		return rapid.JointTarget{}, ErrNoMechunit
	}
	q := rws.CartesianQuery{
		Target:  target,
		Current: rapid.JointTarget{ExtAx: rapid.NoExtAxes()},
		Tool:    DefaultTool,
		WObj:    DefaultWorkObject,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return api.JointsFromCartesian(ctx, mechunit, q)
}
