// Package panel is the entry point for operator panel code.
//
// A Panel owns the subscription registries, the mastership coordinator and
// the jogger for one controller. Widgets acquire shared variables and
// signals, register change listeners on them and release them when they go
// away. Writes run under edit mastership.
//
//	p := panel.New(client, panel.DefaultConfig())
//	defer p.Close(ctx)
//
//	counter, err := p.AcquireVariable(ctx, "T_ROB1", "MainModule", "counter")
//	if err != nil {
//	    return err
//	}
//	defer p.ReleaseVariable(ctx, "T_ROB1", "MainModule", "counter")
//
//	counter.OnChanged(eventbus.NewListener(func(ev eventbus.Event) {
//	    fmt.Println(ev.Data.(variable.Change).Value)
//	}))
//
//	err = p.SetVariable(ctx, "T_ROB1", "MainModule", "counter", 10)
//
// # Events
//
// Events returns the panel's bus. Besides the per-key topics used by the
// registries it carries TopicMastership (mastership.StateChange payloads)
// and TopicSubscriptionBlocked (bool payloads).
package panel
