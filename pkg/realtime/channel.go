// Package realtime maintains the long-lived websocket to the parlor backend.
//
// One channel exists per authenticated session. The dial URL carries the
// user id so the backend can associate the transport with the user for
// presence and message routing. The channel owns reconnection; it never
// touches conversation state, it only publishes events to the bus.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlorchat/parlor/pkg/api"
	"github.com/parlorchat/parlor/pkg/bus"
	"github.com/parlorchat/parlor/pkg/logger"
)

// State is the transport lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Config parameterizes the websocket connection.
type Config struct {
	SocketURL  string // ws:// or wss:// endpoint
	UserID     string // identity declared on every (re)connect
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// frame is the wire envelope for inbound events.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Channel is a receive-only realtime transport. Sends are persisted through
// the REST client; the backend forwards them to the other party itself.
type Channel struct {
	cfg    Config
	events *bus.EventBus
	dialer *websocket.Dialer
	state  atomic.Int32
	done   chan struct{}
	closed atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewChannel(cfg Config, events *bus.EventBus) *Channel {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Channel{
		cfg:    cfg,
		events: events,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		done:   make(chan struct{}),
	}
}

// Start begins the connect/read/reconnect loop. It returns immediately;
// connection progress is observable via State and bus events.
func (c *Channel) Start(ctx context.Context) error {
	if c.cfg.UserID == "" {
		return errors.New("realtime: user id required")
	}
	target, err := c.dialURL()
	if err != nil {
		return err
	}
	go c.run(ctx, target)
	return nil
}

// State returns the current transport state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Close tears the transport down exactly once. Subsequent calls are no-ops.
func (c *Channel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.state.Store(int32(StateDisconnected))
	logger.InfoC("realtime", "Channel closed")
}

func (c *Channel) dialURL() (string, error) {
	u, err := url.Parse(c.cfg.SocketURL)
	if err != nil {
		return "", errors.New("realtime: invalid socket URL")
	}
	q := u.Query()
	q.Set("userId", c.cfg.UserID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) run(ctx context.Context, target string) {
	backoff := c.cfg.MinBackoff

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.state.Store(int32(StateConnecting))
		conn, _, err := c.dialer.DialContext(ctx, target, nil)
		if err != nil {
			c.state.Store(int32(StateDisconnected))
			logger.WarnCF("realtime", "Dial failed", map[string]any{
				"error":    err.Error(),
				"retry_in": backoff.String(),
			})
			if !c.wait(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed.Load() {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.state.Store(int32(StateConnected))
		backoff = c.cfg.MinBackoff
		logger.InfoCF("realtime", "Connected", map[string]any{"user_id": c.cfg.UserID})
		c.publish(ctx, bus.Event{Kind: bus.KindConnection, Connected: true})

		readErr := c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.state.Store(int32(StateDisconnected))

		if c.closed.Load() || ctx.Err() != nil {
			return
		}

		reason := ""
		if readErr != nil {
			reason = readErr.Error()
		}
		logger.WarnCF("realtime", "Connection lost", map[string]any{"reason": reason})
		c.publish(ctx, bus.Event{Kind: bus.KindConnection, Connected: false, Reason: reason})

		if !c.wait(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
	}
}

// readLoop decodes inbound frames until the transport fails. Events are
// published in arrival order; dropping or reordering here would break the
// conversation reducer's guarantees.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.WarnCF("realtime", "Undecodable frame", map[string]any{"error": err.Error()})
			continue
		}

		switch f.Event {
		case "newMessage":
			var msg api.Message
			if err := json.Unmarshal(f.Payload, &msg); err != nil {
				logger.WarnCF("realtime", "Bad newMessage payload", map[string]any{"error": err.Error()})
				continue
			}
			c.publish(ctx, bus.Event{Kind: bus.KindMessage, Message: msg})
		case "onlineUsers":
			var ids []string
			if err := json.Unmarshal(f.Payload, &ids); err != nil {
				logger.WarnCF("realtime", "Bad onlineUsers payload", map[string]any{"error": err.Error()})
				continue
			}
			c.publish(ctx, bus.Event{Kind: bus.KindPresence, OnlineIDs: ids})
		default:
			logger.DebugCF("realtime", "Ignoring event", map[string]any{"event": f.Event})
		}
	}
}

func (c *Channel) publish(ctx context.Context, ev bus.Event) {
	if err := c.events.Publish(ctx, ev); err != nil && !errors.Is(err, bus.ErrBusClosed) {
		logger.WarnCF("realtime", "Publish failed", map[string]any{"error": err.Error()})
	}
}

func (c *Channel) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur, ceil time.Duration) time.Duration {
	next := cur * 2
	if next > ceil {
		return ceil
	}
	return next
}
