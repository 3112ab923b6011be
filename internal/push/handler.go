package push

import (
	"net/http"
	"time"

	"whatsapp-console/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const pongWait = 60 * time.Second

// pingPeriod is a var so tests can shorten the keepalive interval.
var pingPeriod = 45 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The console is served from the same origin in production; the
	// reverse proxy enforces origin policy ahead of us.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades GET /v1/events to a websocket subscription. The
// request has already passed auth middleware; identity is not used
// beyond that since every operator sees the same event stream.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Warn("websocket upgrade failed", "err", err)
			return
		}

		hub.Register(conn)

		// Reader loop exists only to surface close/pong frames; clients
		// send nothing after the handshake.
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer ticker.Stop()
			for range ticker.C {
				// WriteControl is the only write method safe to call
				// concurrently with the hub's broadcast writes.
				deadline := time.Now().Add(writeTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(conn)
	}
}
