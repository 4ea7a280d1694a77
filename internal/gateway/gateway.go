// Package gateway discovers and opens the event-stream connection.
//
// It stops at framing: events are delivered raw and nothing here speaks the
// identify, heartbeat or resume protocol.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/rest"
)

// DefaultVersion is the gateway protocol version requested on dial.
const DefaultVersion = 10

// Event is one gateway frame.
type Event struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// Discover asks the REST API for the gateway URL.
func Discover(ctx context.Context, d *rest.Dispatcher) (string, error) {
	info, err := rest.Call[core.GatewayInfo](ctx, d, rest.GetGateway{})
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	if strings.TrimSpace(info.URL) == "" {
		return "", errors.New("discover gateway: empty url")
	}
	return info.URL, nil
}

// Options configures Dial.
type Options struct {
	Version int
	Dialer  *websocket.Dialer
	Header  http.Header
	Buffer  int
	Logger  *zap.Logger
}

// Conn is an open gateway connection.
type Conn struct {
	ws      *websocket.Conn
	events  chan Event
	closing chan struct{}
	done    chan struct{}
	logger  *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Connect discovers the gateway URL and dials it.
func Connect(ctx context.Context, d *rest.Dispatcher, opts Options) (*Conn, error) {
	rawURL, err := Discover(ctx, d)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, rawURL, opts)
}

// Dial opens a connection to rawURL with the version and encoding query set.
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := dialURL(rawURL, opts.version())
	if err != nil {
		return nil, err
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, _, err := dialer.DialContext(ctx, target, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}

	c := &Conn{
		ws:      ws,
		events:  make(chan Event, buffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go c.readLoop()

	logger.Debug("Gateway connected", zap.String("url", target))
	return c, nil
}

func (o Options) version() int {
	if o.Version > 0 {
		return o.Version
	}
	return DefaultVersion
}

func dialURL(rawURL string, version int) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid gateway url scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("v", strconv.Itoa(version))
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Events delivers frames in arrival order. It is closed when the connection ends.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Done is closed once the read loop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode gateway event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Time{}
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok {
			deadline = d
		}
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send gateway event: %w", err)
	}
	return nil
}

// Close sends a normal close frame and tears the connection down.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.errMu.Lock()
				c.err = err
				c.errMu.Unlock()
			}
			c.logger.Debug("Gateway read loop ended", zap.Error(err))
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Warn("Dropping malformed gateway frame", zap.Error(err))
			continue
		}
		// A full buffer must not pin the loop once Close is called.
		select {
		case c.events <- ev:
		case <-c.closing:
			c.logger.Debug("Gateway read loop ended", zap.String("reason", "closed with undelivered events"))
			return
		}
	}
}

func (c *Conn) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}
