package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var ErrEmptyEvent = errors.New("push: empty event name")

// Publisher is the write side of the notification channel. Services
// publish; the hub (possibly in another process) delivers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Hub tracks live websocket subscribers on this API instance and fans
// frames out to them. One connection per browser tab; the hub never
// reads application frames from clients.
//
// Gorilla permits a single concurrent writer per connection. Data
// frames hold the per-connection mutex; control frames (pings, close)
// must use WriteControl, which has its own internal lock.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[*websocket.Conn]*sync.Mutex
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Debug("push subscriber connected", "subscribers", n)
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	_ = conn.Close()
	h.log.Debug("push subscriber disconnected", "subscribers", n)
}

// Subscribers reports the current local connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast writes one frame to every local subscriber. A failed write
// drops that subscriber; its client recovers by reconnecting and
// refetching, so no frame is retried.
func (h *Hub) Broadcast(ev Event) {
	payload, err := ev.Marshal()
	if err != nil {
		h.log.Error("push event marshal failed", "event", ev.Event, "err", err)
		return
	}
	h.BroadcastRaw(payload)
}

// BroadcastRaw fans out an already-encoded frame (the redis bridge path).
func (h *Hub) BroadcastRaw(payload []byte) {
	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.conns))
	for c, wmu := range h.conns {
		targets = append(targets, target{c, wmu})
	}
	h.mu.RUnlock()

	var dead []*websocket.Conn
	for _, t := range targets {
		t.wmu.Lock()
		_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := t.conn.WriteMessage(websocket.TextMessage, payload)
		t.wmu.Unlock()
		if err != nil {
			dead = append(dead, t.conn)
		}
	}
	for _, c := range dead {
		h.Unregister(c)
	}
}

// Close drops every subscriber, typically during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
}
