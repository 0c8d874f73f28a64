package rws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rws-panel/rws-go/pkg/rapid"
)

type motionAPI struct {
	c *Client
}

func (m *motionAPI) ChangeCount(ctx context.Context) (int, error) {
	item, err := m.c.get(ctx, "change count", "/rw/motionsystem?resource=change-count")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(item.str("change-count"))
	if err != nil {
		return 0, fmt.Errorf("%w: change-count: %v", ErrUnexpectedPayload, err)
	}
	return n, nil
}

func (m *motionAPI) Jog(ctx context.Context, cmd JogCommand) error {
	form := url.Values{}
	for i, v := range cmd.Axes {
		form.Set("axis"+strconv.Itoa(i+1), strconv.Itoa(v))
	}
	form.Set("ccount", strconv.Itoa(cmd.ChangeCount))
	incMode := cmd.IncMode
	if incMode == "" {
		incMode = "Continuous"
	}
	form.Set("inc-mode", incMode)
	if cmd.Mechunit != "" {
		form.Set("mechunit", cmd.Mechunit)
	}
	if cmd.CoordSystem != "" {
		form.Set("coord-system", cmd.CoordSystem)
	}
	return m.c.post(ctx, "jog", "/rw/motionsystem/jog", form)
}

// JointsFromCartesian asks the controller for the joint solution of q.Target.
// Positions are exchanged in millimeters and joint angles in degrees.
func (m *motionAPI) JointsFromCartesian(ctx context.Context, mechunit string, q CartesianQuery) (rapid.JointTarget, error) {
	form := url.Values{}
	form.Set("curr_position", robAxLiteral(q.Current))
	form.Set("curr_ext_joints", extLiteral(q.Current.ExtAx))
	form.Set("pose", q.Target.String())
	if q.Tool != "" {
		form.Set("tool", q.Tool)
	}
	if q.WObj != "" {
		form.Set("wobj", q.WObj)
	}

	path := "/rw/motionsystem/mechunits/" + url.PathEscape(mechunit) + "/joints-from-cartesian"
	var doc halDoc
	if _, err := m.c.do(ctx, "joints from cartesian", http.MethodPut, path, form, &doc); err != nil {
		return rapid.JointTarget{}, err
	}
	item, ok := doc.first()
	if !ok {
		return rapid.JointTarget{}, fmt.Errorf("%w: %s: empty state", ErrUnexpectedPayload, path)
	}

	var jt rapid.JointTarget
	for i := range jt.RobAx {
		f, err := strconv.ParseFloat(item.str("rax_"+strconv.Itoa(i+1)), 64)
		if err != nil {
			return rapid.JointTarget{}, fmt.Errorf("%w: rax_%d: %v", ErrUnexpectedPayload, i+1, err)
		}
		jt.RobAx[i] = rapid.Degrees(f)
	}
	jt.ExtAx = q.Current.ExtAx
	for i := range jt.ExtAx {
		if s := item.str("eax_" + string(rune('a'+i))); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				jt.ExtAx[i] = f
			}
		}
	}
	return jt, nil
}

func robAxLiteral(jt rapid.JointTarget) string {
	lit, _ := rapid.FormatNumeric(jt.RobAx[:])
	return lit
}

func extLiteral(ext rapid.ExtAxes) string {
	lit, _ := rapid.FormatNumeric(ext[:])
	return lit
}

// Compile-time interface satisfaction check.
var _ MotionAPI = (*motionAPI)(nil)
