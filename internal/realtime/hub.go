// Package realtime pushes publish and domain lifecycle events to connected
// dashboards over websockets. Events originate anywhere in the cluster and
// fan out through Postgres NOTIFY, so every app instance serves its own
// websocket clients without cross-instance plumbing.
package realtime

import (
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/logging"
)

// Hub owns the websocket client set. All state is confined to the run
// goroutine; registration, broadcast, and counting go through channels.
type Hub struct {
	register    chan *client
	unregister  chan *client
	broadcast   chan []byte
	clientCount chan chan int
	clients     map[*client]struct{}
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

type client struct {
	hub  *Hub
	conn wsConn
	send chan []byte
}

type pingTicker interface {
	C() <-chan time.Time
	Stop()
}

type realPingTicker struct {
	*time.Ticker
}

func (t *realPingTicker) C() <-chan time.Time {
	return t.Ticker.C
}

var pingTickerFactory = func() pingTicker {
	return &realPingTicker{time.NewTicker(30 * time.Second)}
}

// NewHub creates a hub and starts its run loop.
func NewHub() *Hub {
	h := &Hub{
		register:    make(chan *client),
		unregister:  make(chan *client),
		broadcast:   make(chan []byte, 512),
		clientCount: make(chan chan int),
		clients:     make(map[*client]struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				_ = c.conn.Close()
			}
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// A client that cannot keep up gets dropped rather
					// than backing up everyone else.
					close(c.send)
					delete(h.clients, c)
				}
			}
		case response := <-h.clientCount:
			response <- len(h.clients)
		}
	}
}

// Broadcast queues a payload for every connected client. Never blocks; a
// full hub queue drops the payload.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		logging.L().Warn("dropping realtime payload", zap.String("reason", "slow consumers"))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	response := make(chan int)
	h.clientCount <- response
	return <-response
}

// Handler upgrades a dashboard connection and pumps events to it.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		c := &client{
			hub:  h,
			conn: conn,
			send: make(chan []byte, 512),
		}

		h.register <- c

		go c.writePump()
		c.readPump()
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := pingTickerFactory()
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C():
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
