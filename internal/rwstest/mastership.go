package rwstest

import (
	"context"
	"net/http"
	"sync"

	"github.com/rws-panel/rws-go/pkg/rws"
)

// Mastership is a fake rws.MastershipAPI.
//
// A domain held by HolderLocal (the teach pendant) rejects requests with 403
// until a remote-access request has been granted. RMMP polls walk through
// the configured script; the last entry repeats.
type Mastership struct {
	mu sync.Mutex

	mode     rws.OperatingMode
	holders  map[rws.Domain]rws.MastershipHolder
	heldByMe map[rws.Domain]bool

	requests map[rws.Domain]int
	releases map[rws.Domain]int

	requestErr map[rws.Domain]error
	releaseErr map[rws.Domain]error

	rmmpScript   []rws.RMMPState
	rmmpPolls    int
	rmmpRequests int
	rmmpCancels  int
	rmmpGranted  bool

	// OnRequest runs before every mastership request is answered. A non-nil
	// error is returned in place of the answer.
	OnRequest func(ctx context.Context, domain rws.Domain) error
}

func newMastership() *Mastership {
	return &Mastership{
		mode:       rws.ModeManualReduced,
		holders:    make(map[rws.Domain]rws.MastershipHolder),
		heldByMe:   make(map[rws.Domain]bool),
		requests:   make(map[rws.Domain]int),
		releases:   make(map[rws.Domain]int),
		requestErr: make(map[rws.Domain]error),
		releaseErr: make(map[rws.Domain]error),
	}
}

// SetMode sets the operating mode.
func (m *Mastership) SetMode(mode rws.OperatingMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// SetHolder sets who holds domain.
func (m *Mastership) SetHolder(domain rws.Domain, holder rws.MastershipHolder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holders[domain] = holder
	m.heldByMe[domain] = false
}

// FailRequest makes requests for domain return err (nil clears).
func (m *Mastership) FailRequest(domain rws.Domain, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestErr[domain] = err
}

// FailRelease makes releases for domain return err (nil clears).
func (m *Mastership) FailRelease(domain rws.Domain, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseErr[domain] = err
}

// ScriptRMMP sets the sequence of states returned by RMMP polls.
func (m *Mastership) ScriptRMMP(states ...rws.RMMPState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmmpScript = states
	m.rmmpPolls = 0
	m.rmmpGranted = false
}

// Requests returns the number of mastership requests for domain.
func (m *Mastership) Requests(domain rws.Domain) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[domain]
}

// Releases returns the number of mastership releases for domain.
func (m *Mastership) Releases(domain rws.Domain) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases[domain]
}

// RMMPRequests returns the number of remote-access requests.
func (m *Mastership) RMMPRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rmmpRequests
}

// RMMPPolls returns the number of remote-access polls.
func (m *Mastership) RMMPPolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rmmpPolls
}

// RMMPCancels returns the number of remote-access cancellations.
func (m *Mastership) RMMPCancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rmmpCancels
}

// HeldByMe reports whether the fake considers domain held by the client.
func (m *Mastership) HeldByMe(domain rws.Domain) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldByMe[domain]
}

// Request implements rws.MastershipAPI.
func (m *Mastership) Request(ctx context.Context, domain rws.Domain) error {
	m.mu.Lock()
	hook := m.OnRequest
	m.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, domain); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[domain]++
	if err := m.requestErr[domain]; err != nil {
		return err
	}
	path := "/rw/mastership/" + string(domain) + "/request"
	switch m.holders[domain] {
	case rws.HolderLocal:
		if !m.rmmpGranted {
			return &rws.StatusError{StatusCode: http.StatusForbidden, Code: -1073445859, Path: path, Message: "mastership held by local client"}
		}
	case rws.HolderRemote, rws.HolderInternal:
		if !m.heldByMe[domain] {
			return &rws.StatusError{StatusCode: http.StatusForbidden, Code: -1073445858, Path: path, Message: "mastership held by another client"}
		}
	}
	m.holders[domain] = rws.HolderRemote
	m.heldByMe[domain] = true
	return nil
}

// Release implements rws.MastershipAPI.
func (m *Mastership) Release(ctx context.Context, domain rws.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[domain]++
	if err := m.releaseErr[domain]; err != nil {
		return err
	}
	if m.heldByMe[domain] {
		m.holders[domain] = rws.HolderNone
		m.heldByMe[domain] = false
	}
	return nil
}

// Status implements rws.MastershipAPI.
func (m *Mastership) Status(ctx context.Context, domain rws.Domain) (rws.MastershipStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	holder := m.holders[domain]
	if holder == "" {
		holder = rws.HolderNone
	}
	return rws.MastershipStatus{Holder: holder, HeldByMe: m.heldByMe[domain]}, nil
}

// OperatingMode implements rws.MastershipAPI.
func (m *Mastership) OperatingMode(ctx context.Context) (rws.OperatingMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, nil
}

// RequestRMMP implements rws.MastershipAPI.
func (m *Mastership) RequestRMMP(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmmpRequests++
	return nil
}

// RMMPState implements rws.MastershipAPI.
func (m *Mastership) RMMPState(ctx context.Context) (rws.RMMPState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmmpPolls++
	if len(m.rmmpScript) == 0 {
		return rws.RMMPState{Privilege: rws.RMMPNone}, nil
	}
	i := m.rmmpPolls - 1
	if i >= len(m.rmmpScript) {
		i = len(m.rmmpScript) - 1
	}
	st := m.rmmpScript[i]
	if st.Granted() {
		m.rmmpGranted = true
	}
	return st, nil
}

// CancelRMMP implements rws.MastershipAPI.
func (m *Mastership) CancelRMMP(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmmpCancels++
	return nil
}

var _ rws.MastershipAPI = (*Mastership)(nil)
