// Package pushclient maintains the console's single connection to the
// server event stream and redelivers frames to a handler. Events lost
// while disconnected are not replayed; the cache recovers by refetch.
package pushclient

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultReconnectDelay = 3000 * time.Millisecond

// Handler receives each well-formed frame.
type Handler func(event string, data json.RawMessage)

type Options struct {
	// URL is the ws:// or wss:// endpoint of the event stream.
	URL string
	// Token is passed as a query param; websocket dials cannot carry an
	// Authorization header from every environment.
	Token string

	Handler      Handler
	OnConnect    func()
	OnDisconnect func()

	// ReconnectDelay defaults to 3s.
	ReconnectDelay time.Duration

	Log *slog.Logger
}

type Client struct {
	opts   Options
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	timer  *time.Timer
	closed bool
}

func New(opts Options) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	return &Client{opts: opts, dialer: websocket.DefaultDialer}
}

// Connect opens the stream and starts the read loop. Calling it while
// a connection is already open is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	url := c.opts.URL
	if c.opts.Token != "" {
		url += "?token=" + c.opts.Token
	}

	conn, _, err := c.dialer.Dial(url, nil)
	if err != nil {
		c.opts.Log.Warn("push connect failed", "error", err.Error())
		c.scheduleReconnect()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	if c.opts.OnConnect != nil {
		c.opts.OnConnect()
	}
	go c.readLoop(conn)
	return nil
}

// Close tears the client down: the socket closes, any pending
// reconnect is cancelled, and no further attempts are made.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(raw)
	}

	c.mu.Lock()
	wasCurrent := c.conn == conn
	if wasCurrent {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	conn.Close()
	if !wasCurrent || closed {
		return
	}

	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
	c.scheduleReconnect()
}

// dispatch parses one frame. Malformed frames are logged and dropped;
// the stream keeps going.
func (c *Client) dispatch(raw []byte) {
	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		c.opts.Log.Warn("dropping malformed push frame")
		return
	}
	if c.opts.Handler != nil {
		c.opts.Handler(frame.Event, frame.Data)
	}
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer != nil {
		return
	}
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		c.timer = nil
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.Connect()
		}
	})
}
