package rws

import (
	"context"
	"net/url"
	"strings"
)

type mastershipAPI struct {
	c *Client
}

func domainPath(domain Domain) string {
	return "/rw/mastership/" + url.PathEscape(string(domain))
}

func (m *mastershipAPI) Request(ctx context.Context, domain Domain) error {
	return m.c.post(ctx, "request mastership", domainPath(domain)+"/request", nil)
}

func (m *mastershipAPI) Release(ctx context.Context, domain Domain) error {
	return m.c.post(ctx, "release mastership", domainPath(domain)+"/release", nil)
}

func (m *mastershipAPI) Status(ctx context.Context, domain Domain) (MastershipStatus, error) {
	item, err := m.c.get(ctx, "mastership status", domainPath(domain))
	if err != nil {
		return MastershipStatus{}, err
	}
	holder := MastershipHolder(strings.ToLower(item.str("mastership")))
	if holder == "" {
		holder = HolderNone
	}
	return MastershipStatus{
		Holder:   holder,
		HeldByMe: item.flag("mastershipheldbyme"),
	}, nil
}

func (m *mastershipAPI) OperatingMode(ctx context.Context) (OperatingMode, error) {
	item, err := m.c.get(ctx, "operating mode", "/rw/panel/opmode")
	if err != nil {
		return ModeUndefined, err
	}
	return OperatingMode(strings.ToUpper(item.str("opmode"))), nil
}

func (m *mastershipAPI) RequestRMMP(ctx context.Context) error {
	return m.c.post(ctx, "request rmmp", "/users/rmmp", url.Values{"privilege": {string(RMMPModify)}})
}

func (m *mastershipAPI) RMMPState(ctx context.Context) (RMMPState, error) {
	item, err := m.c.get(ctx, "rmmp state", "/users/rmmp")
	if err != nil {
		return RMMPState{}, err
	}
	return RMMPState{
		Privilege: RMMPPrivilege(strings.ToLower(item.str("privilege"))),
		HeldByMe:  item.flag("rmmpheldbyme"),
	}, nil
}

func (m *mastershipAPI) CancelRMMP(ctx context.Context) error {
	return m.c.post(ctx, "cancel rmmp", "/users/rmmp/cancel", nil)
}

// Compile-time interface satisfaction check.
var _ MastershipAPI = (*mastershipAPI)(nil)
