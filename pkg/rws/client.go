package rws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rws-panel/rws-go/pkg/connection"
	rwslog "github.com/rws-panel/rws-go/pkg/log"
)

const (
	acceptHeader      = "application/hal+json;v=2.0"
	formContentType   = "application/x-www-form-urlencoded;v=2.0"
	maxErrorBodyBytes = 64 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is the controller address, e.g. https://192.168.125.1.
	BaseURL string

	// Username and Password are sent as HTTP basic auth on the first
	// request; later requests reuse the session cookie.
	Username string
	Password string

	// HTTPClient overrides the HTTP client. Its Jar is replaced when nil.
	HTTPClient *http.Client

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Dialer overrides the websocket dialer used for the push channel.
	Dialer *websocket.Dialer

	// SubscriptionPriority is the push priority requested per resource
	// (0 low, 1 medium, 2 high).
	SubscriptionPriority int

	// Reconnect configures push channel recovery.
	Reconnect connection.Config

	// Logger is used for operational logging (optional).
	Logger *slog.Logger

	// ProtocolLogger receives captured traffic (optional).
	ProtocolLogger rwslog.Logger
}

// DefaultConfig returns sensible defaults for the given controller URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:              baseURL,
		Username:             "Default User",
		Password:             "robotics",
		Timeout:              10 * time.Second,
		SubscriptionPriority: 1,
		Reconnect:            connection.DefaultConfig(),
	}
}

// Client talks to a single controller. It implements Controller.
type Client struct {
	config   Config
	base     *url.URL
	http     *http.Client
	logger   *slog.Logger
	recorder *rwslog.Recorder

	mastership *mastershipAPI
	motion     *motionAPI

	mu     sync.Mutex
	sub    *Subscriber
	closed bool
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig("").Timeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		copied := *httpClient
		copied.Jar = jar
		httpClient = &copied
	}

	c := &Client{
		config:   cfg,
		base:     base,
		http:     httpClient,
		logger:   cfg.Logger,
		recorder: rwslog.NewRecorder(cfg.ProtocolLogger, base.String()),
	}
	c.mastership = &mastershipAPI{c: c}
	c.motion = &motionAPI{c: c}
	return c, nil
}

// BaseURL returns the controller address.
func (c *Client) BaseURL() string { return c.base.String() }

// Recorder returns the protocol recorder shared by the client's components.
func (c *Client) Recorder() *rwslog.Recorder { return c.recorder }

// Data returns a handle for a RAPID symbol.
func (c *Client) Data(sym Symbol) DataHandle {
	return &dataHandle{c: c, sym: sym}
}

// Signal returns a handle for an I/O signal.
func (c *Client) Signal(ref SignalRef) SignalHandle {
	return &signalHandle{c: c, ref: ref}
}

// Mastership returns the mastership API.
func (c *Client) Mastership() MastershipAPI { return c.mastership }

// Motion returns the motion API.
func (c *Client) Motion() MotionAPI { return c.motion }

// Subscriber returns the client's push channel, creating it on first use.
func (c *Client) Subscriber() *Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		c.sub = newSubscriber(c)
	}
	return c.sub
}

// Close tears down the push channel. Handles obtained from the client must
// not be used afterwards.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	sub := c.sub
	c.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close(ctx)
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return err
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// debugLog logs a debug message if logging is enabled.
func (c *Client) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// resolve builds the absolute URL for an API path.
func (c *Client) resolve(path string) string {
	return c.base.String() + path
}

// halDoc is the envelope of every HAL+JSON response.
type halDoc struct {
	State    []map[string]any `json:"state"`
	Embedded struct {
		Resources []map[string]any `json:"resources"`
	} `json:"_embedded"`
}

// first returns the first state item, or the first embedded resource.
func (d *halDoc) first() (halItem, bool) {
	if len(d.State) > 0 {
		return halItem(d.State[0]), true
	}
	if len(d.Embedded.Resources) > 0 {
		return halItem(d.Embedded.Resources[0]), true
	}
	return nil, false
}

type halItem map[string]any

// str returns a field as a string; non-string values are formatted.
func (h halItem) str(key string) string {
	v, ok := h[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (h halItem) flag(key string) bool {
	return strings.EqualFold(h.str(key), "true")
}

// errorDoc is the body of an error response.
type errorDoc struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
}

// do performs a request. When form is non-nil it is sent as the body.
// When out is non-nil a successful JSON body is decoded into it.
func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) (http.Header, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var body io.Reader
	var encoded string
	if form != nil {
		encoded = form.Encode()
		body = strings.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	c.recordRequest(method, path, encoded)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.Failure(rwslog.LayerHTTP, path, op, err)
		return nil, &TransportError{Op: op, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	c.recordResponse(method, path, resp.StatusCode, elapsed)
	c.debugLog("rws: request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "duration", elapsed)

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := decodeStatusError(resp, path)
		c.recorder.Failure(rwslog.LayerHTTP, path, op, statusErr)
		return resp.Header, statusErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.Header, fmt.Errorf("%w: %s: %v", ErrUnexpectedPayload, path, err)
		}
	}
	return resp.Header, nil
}

// get fetches path and returns its first state item.
func (c *Client) get(ctx context.Context, op, path string) (halItem, error) {
	var doc halDoc
	if _, err := c.do(ctx, op, http.MethodGet, path, nil, &doc); err != nil {
		return nil, err
	}
	item, ok := doc.first()
	if !ok {
		return nil, fmt.Errorf("%w: %s: empty state", ErrUnexpectedPayload, path)
	}
	return item, nil
}

// post sends a form and discards the response body.
func (c *Client) post(ctx context.Context, op, path string, form url.Values) error {
	if form == nil {
		form = url.Values{}
	}
	_, err := c.do(ctx, op, http.MethodPost, path, form, nil)
	return err
}

func decodeStatusError(resp *http.Response, path string) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode, Path: path}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return se
	}
	var doc errorDoc
	if json.Unmarshal(data, &doc) == nil {
		se.Code = doc.Status.Code
		se.Message = doc.Status.Msg
	}
	return se
}

func (c *Client) recordRequest(method, path, body string) {
	c.recorder.Log(rwslog.Event{
		Direction: rwslog.DirectionOut,
		Layer:     rwslog.LayerHTTP,
		Category:  rwslog.CategoryMessage,
		Resource:  path,
		Request: &rwslog.RequestEvent{
			Method: method,
			Path:   path,
			Body:   body,
		},
	})
}

func (c *Client) recordResponse(method, path string, status int, elapsed time.Duration) {
	c.recorder.Log(rwslog.Event{
		Direction: rwslog.DirectionIn,
		Layer:     rwslog.LayerHTTP,
		Category:  rwslog.CategoryMessage,
		Resource:  path,
		Request: &rwslog.RequestEvent{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Duration:   &elapsed,
		},
	})
}

// Compile-time interface satisfaction check.
var _ Controller = (*Client)(nil)
