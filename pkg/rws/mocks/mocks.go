// Package mocks provides testify mocks for the rws interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// MastershipAPI is a mock of rws.MastershipAPI.
type MastershipAPI struct {
	mock.Mock
}

func (m *MastershipAPI) Request(ctx context.Context, domain rws.Domain) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *MastershipAPI) Release(ctx context.Context, domain rws.Domain) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *MastershipAPI) Status(ctx context.Context, domain rws.Domain) (rws.MastershipStatus, error) {
	args := m.Called(ctx, domain)
	return args.Get(0).(rws.MastershipStatus), args.Error(1)
}

func (m *MastershipAPI) OperatingMode(ctx context.Context) (rws.OperatingMode, error) {
	args := m.Called(ctx)
	return args.Get(0).(rws.OperatingMode), args.Error(1)
}

func (m *MastershipAPI) RequestRMMP(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MastershipAPI) RMMPState(ctx context.Context) (rws.RMMPState, error) {
	args := m.Called(ctx)
	return args.Get(0).(rws.RMMPState), args.Error(1)
}

func (m *MastershipAPI) CancelRMMP(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MotionAPI is a mock of rws.MotionAPI.
type MotionAPI struct {
	mock.Mock
}

func (m *MotionAPI) ChangeCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MotionAPI) Jog(ctx context.Context, cmd rws.JogCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MotionAPI) JointsFromCartesian(ctx context.Context, mechunit string, q rws.CartesianQuery) (rapid.JointTarget, error) {
	args := m.Called(ctx, mechunit, q)
	return args.Get(0).(rapid.JointTarget), args.Error(1)
}

// DataHandle is a mock of rws.DataHandle. OnChanged callbacks are recorded
// and can be fired with Push.
type DataHandle struct {
	mock.Mock
	listeners []rws.ChangeFunc
}

func (m *DataHandle) Symbol() rws.Symbol {
	args := m.Called()
	return args.Get(0).(rws.Symbol)
}

func (m *DataHandle) Properties(ctx context.Context) (rws.Properties, error) {
	args := m.Called(ctx)
	return args.Get(0).(rws.Properties), args.Error(1)
}

func (m *DataHandle) Value(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *DataHandle) SetValue(ctx context.Context, v any) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *DataHandle) SetRawValue(ctx context.Context, literal string) error {
	args := m.Called(ctx, literal)
	return args.Error(0)
}

func (m *DataHandle) Subscribe(ctx context.Context, raiseInitial bool) error {
	args := m.Called(ctx, raiseInitial)
	return args.Error(0)
}

func (m *DataHandle) Unsubscribe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DataHandle) OnChanged(fn rws.ChangeFunc) {
	m.Called(fn)
	m.listeners = append(m.listeners, fn)
}

// Push invokes every registered OnChanged callback with raw.
func (m *DataHandle) Push(raw string) {
	for _, fn := range m.listeners {
		fn(raw)
	}
}

var (
	_ rws.MastershipAPI = (*MastershipAPI)(nil)
	_ rws.MotionAPI     = (*MotionAPI)(nil)
	_ rws.DataHandle    = (*DataHandle)(nil)
)
