package rws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rws-panel/rws-go/pkg/connection"
	rwslog "github.com/rws-panel/rws-go/pkg/log"
)

// Subprotocol is the websocket subprotocol of the push channel.
const Subprotocol = "rws_subscription"

// errNoResources stops recovery of a channel nobody listens on.
var errNoResources = errors.New("rws: no resources to subscribe")

// Notification is one pushed change as delivered to a resource handler.
type Notification struct {
	Class    string
	Resource string
	Values   map[string]string
	Sequence uint64

	recorder *rwslog.Recorder
}

// record captures the value the handler resolved for this notification.
func (n Notification) record(value string) {
	n.recorder.Log(rwslog.Event{
		Direction: rwslog.DirectionIn,
		Layer:     rwslog.LayerSubscription,
		Category:  rwslog.CategoryMessage,
		Resource:  n.Resource,
		Push: &rwslog.PushEvent{
			Class:    n.Class,
			Value:    value,
			Sequence: n.Sequence,
		},
	})
}

// NotifyFunc handles pushed changes for one resource. It runs on the
// channel's reader goroutine.
type NotifyFunc func(ctx context.Context, n Notification)

// Subscriber owns the client's subscription group and websocket.
type Subscriber struct {
	c       *Client
	channel *connection.Supervisor

	// opMu serializes group operations, which involve network calls.
	opMu sync.Mutex

	mu        sync.Mutex
	group     string
	conn      *websocket.Conn
	resources map[string]NotifyFunc
	order     []string
	seq       uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSubscriber(c *Client) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		c:         c,
		resources: make(map[string]NotifyFunc),
		ctx:       ctx,
		cancel:    cancel,
	}
	cfg := c.config.Reconnect
	cfg.Fatal = func(err error) bool {
		return IsStatus(err, http.StatusUnauthorized) || errors.Is(err, errNoResources)
	}
	cfg.OnStateChange = func(from, to connection.State) {
		c.recorder.StateChange(rwslog.StateEntityChannel, "subscription", from.String(), to.String(), "")
		c.debugLog("rws: push channel state", "from", from, "to", to)
	}
	cfg.OnRetry = func(attempt int, wait time.Duration, cause error) {
		c.debugLog("rws: push channel retry", "attempt", attempt, "wait", wait, "cause", cause)
	}
	cfg.OnGiveUp = func(err error) {
		if errors.Is(err, errNoResources) {
			c.debugLog("rws: push channel idle")
			s.wg.Add(1)
			go s.resume()
			return
		}
		if c.logger != nil {
			c.logger.Warn("rws: push channel lost", "error", err)
		}
	}
	s.channel = connection.NewSupervisor(s.establish, cfg)
	return s
}

// State returns the push channel state.
func (s *Subscriber) State() connection.State {
	return s.channel.State()
}

// Resources returns the currently subscribed resources in subscription order.
func (s *Subscriber) Resources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Add subscribes resource and routes its notifications to fn. Adding an
// already subscribed resource replaces its handler.
func (s *Subscriber) Add(ctx context.Context, resource string, fn NotifyFunc) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.resources[resource]; exists {
		s.resources[resource] = fn
		s.mu.Unlock()
		return nil
	}
	s.resources[resource] = fn
	s.order = append(s.order, resource)
	group := s.group
	s.mu.Unlock()

	var err error
	switch s.channel.State() {
	case connection.StateConnected:
		_, err = s.c.do(ctx, "add subscription", http.MethodPut, "/subscription/"+group, s.form([]string{resource}), nil)
	case connection.StateReconnecting, connection.StateConnecting:
		// Picked up when the group is recreated.
		s.c.debugLog("rws: subscription deferred until reconnect", "resource", resource)
	default:
		err = s.channel.Connect(ctx)
	}

	if err != nil {
		s.forget(resource)
		return err
	}
	return nil
}

// Remove unsubscribes resource. Removing an unknown resource is a no-op.
func (s *Subscriber) Remove(ctx context.Context, resource string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if _, exists := s.resources[resource]; !exists {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.forget(resource)

	if s.channel.State() != connection.StateConnected {
		return nil
	}
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()

	_, err := s.c.do(ctx, "remove subscription", http.MethodDelete,
		"/subscription/"+group+"/"+url.PathEscape(resource), nil, nil)
	return err
}

// Close deletes the subscription group and closes the websocket.
func (s *Subscriber) Close(ctx context.Context) error {
	s.opMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.opMu.Unlock()
		return nil
	}
	s.closed = true
	group := s.group
	conn := s.conn
	s.mu.Unlock()

	s.channel.Close()
	s.cancel()

	var err error
	if group != "" {
		_, err = s.c.do(ctx, "delete subscription", http.MethodDelete, "/subscription/"+group, nil, nil)
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.opMu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Subscriber) forget(resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, resource)
	for i, r := range s.order {
		if r == resource {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Subscriber) form(resources []string) url.Values {
	form := url.Values{}
	form.Set("resources", strconv.Itoa(len(resources)))
	prio := strconv.Itoa(s.c.config.SubscriptionPriority)
	for i, r := range resources {
		n := strconv.Itoa(i + 1)
		form.Set(n, r)
		form.Set(n+"-p", prio)
	}
	return form
}

// establish creates a subscription group for every known resource and opens
// its websocket. It is the supervisor's DialFunc.
func (s *Subscriber) establish(ctx context.Context) error {
	s.mu.Lock()
	resources := make([]string, len(s.order))
	copy(resources, s.order)
	old := s.conn
	s.conn = nil
	s.group = ""
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if len(resources) == 0 {
		return errNoResources
	}

	header, err := s.c.do(ctx, "create subscription", http.MethodPost, "/subscription", s.form(resources), nil)
	if err != nil {
		return err
	}
	location := header.Get("Location")
	if location == "" {
		return fmt.Errorf("%w: subscription response without Location", ErrUnexpectedPayload)
	}
	wsURL, group, err := s.channelURL(location)
	if err != nil {
		return err
	}

	conn, resp, err := s.dialer().DialContext(ctx, wsURL, s.authHeader())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return &TransportError{Op: "open push channel", Method: http.MethodGet, Path: wsURL, Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	s.group = group
	s.conn = conn
	s.mu.Unlock()

	s.c.debugLog("rws: push channel open", "group", group, "resources", len(resources))

	s.wg.Add(1)
	go s.read(conn)
	return nil
}

// resume reopens a channel that went idle while resources were being
// added.
func (s *Subscriber) resume() {
	defer s.wg.Done()
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	pending := len(s.order) > 0 && !s.closed
	s.mu.Unlock()
	if !pending || s.channel.State() != connection.StateDisconnected {
		return
	}
	if err := s.channel.Connect(s.ctx); err != nil {
		s.c.recorder.Failure(rwslog.LayerSubscription, "", "resume push channel", err)
		if s.c.logger != nil {
			s.c.logger.Warn("rws: push channel resume failed", "error", err)
		}
	}
}

// channelURL turns the Location of a new group into the websocket URL and
// the group id.
func (s *Subscriber) channelURL(location string) (string, string, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: Location %q: %v", ErrUnexpectedPayload, location, err)
	}
	abs := s.c.base.ResolveReference(loc)
	switch abs.Scheme {
	case "http":
		abs.Scheme = "ws"
	case "https":
		abs.Scheme = "wss"
	}
	return abs.String(), path.Base(abs.Path), nil
}

func (s *Subscriber) dialer() *websocket.Dialer {
	var d websocket.Dialer
	if s.c.config.Dialer != nil {
		d = *s.c.config.Dialer
	} else {
		d.HandshakeTimeout = s.c.config.Timeout
		d.Proxy = http.ProxyFromEnvironment
	}
	if len(d.Subprotocols) == 0 {
		d.Subprotocols = []string{Subprotocol}
	}
	if d.Jar == nil {
		d.Jar = s.c.http.Jar
	}
	return &d
}

func (s *Subscriber) authHeader() http.Header {
	header := http.Header{}
	if s.c.config.Username != "" {
		req := &http.Request{Header: header}
		req.SetBasicAuth(s.c.config.Username, s.c.config.Password)
	}
	return header
}

// read dispatches pushed events until conn fails.
func (s *Subscriber) read(conn *websocket.Conn) {
	defer s.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := s.conn == conn && !s.closed
			s.mu.Unlock()
			if current {
				s.c.recorder.Failure(rwslog.LayerSubscription, "", "read push channel", err)
				s.channel.ConnectionLost(err)
			}
			return
		}

		events, err := parseEvents(data)
		if err != nil {
			s.c.recorder.Failure(rwslog.LayerSubscription, "", "decode push event", err)
			s.c.debugLog("rws: dropping malformed event", "error", err)
			continue
		}
		for _, ev := range events {
			s.dispatch(ev)
		}
	}
}

func (s *Subscriber) dispatch(ev event) {
	s.mu.Lock()
	fn, resource := s.lookup(ev.Resource)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if fn == nil {
		s.c.debugLog("rws: event for unknown resource", "resource", ev.Resource, "class", ev.Class)
		return
	}
	fn(s.ctx, Notification{
		Class:    ev.Class,
		Resource: resource,
		Values:   ev.Values,
		Sequence: seq,
		recorder: s.c.recorder,
	})
}

// lookup finds the handler for an event resource. Caller holds s.mu.
func (s *Subscriber) lookup(resource string) (NotifyFunc, string) {
	if fn, ok := s.resources[resource]; ok {
		return fn, resource
	}
	base := resourceBase(resource)
	for r, fn := range s.resources {
		if resourceBase(r) == base {
			return fn, r
		}
	}
	return nil, ""
}
