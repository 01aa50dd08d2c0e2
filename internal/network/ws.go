package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/websocket"
	"github.com/drip/core/event"
	"github.com/drip/internal/logger"
	"github.com/drip/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	wsSendBuffer      = 64
	wsBroadcastBuffer = 256
	wsWriteTimeout    = 10 * time.Second
)

func wsLogger() *zap.SugaredLogger {
	return logger.Named("ws")
}

// WebSocketResponse is the frame pushed to websocket clients.
type WebSocketResponse struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// WsManager fans committed events out to websocket clients. It is an
// observer.Observer; Update never blocks.
type WsManager struct {
	id         string
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mutex      sync.Mutex
}

func NewWsManager() *WsManager {
	return &WsManager{
		id:         "ws-" + uuid.NewString(),
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, wsBroadcastBuffer),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Start runs the manager until ctx is cancelled, then drops every client.
func (m *WsManager) Start(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case c := <-m.register:
			m.mutex.Lock()
			m.clients[c] = true
			n := len(m.clients)
			m.mutex.Unlock()
			metrics.WSClients.Set(float64(n))
			wsLogger().Infow("Client connected", "id", c.id, "clients", n)

		case c := <-m.unregister:
			m.drop(c)

		case message := <-m.broadcast:
			m.mutex.Lock()
			var slow []*wsClient
			for c := range m.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			m.mutex.Unlock()
			for _, c := range slow {
				wsLogger().Warnw("Dropping slow client", "id", c.id)
				m.drop(c)
			}

		case <-ctx.Done():
			m.mutex.Lock()
			for c := range m.clients {
				delete(m.clients, c)
				close(c.send)
			}
			m.mutex.Unlock()
			metrics.WSClients.Set(0)
			return
		}
	}
}

func (m *WsManager) drop(c *wsClient) {
	m.mutex.Lock()
	_, ok := m.clients[c]
	if ok {
		delete(m.clients, c)
		close(c.send)
	}
	n := len(m.clients)
	m.mutex.Unlock()
	if ok {
		metrics.WSClients.Set(float64(n))
		wsLogger().Infow("Client disconnected", "id", c.id, "clients", n)
	}
}

// Len returns the number of connected clients.
func (m *WsManager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.clients)
}

func (m *WsManager) GetID() string { return m.id }

// Update queues ev for every client. Events are dropped when the
// broadcast queue is full.
func (m *WsManager) Update(ev event.Event) {
	message, err := json.Marshal(WebSocketResponse{Event: ev.Name(), Data: ev})
	if err != nil {
		wsLogger().Errorw("Failed to encode event", "event", ev.Name(), "err", err)
		return
	}
	m.Broadcast(message)
}

// Broadcast queues a raw frame for every client.
func (m *WsManager) Broadcast(message []byte) {
	select {
	case m.broadcast <- message:
	default:
		wsLogger().Warnw("Broadcast queue full, dropping message")
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// goes away. A text frame "ping" is answered with "pong".
func (m *WsManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLogger().Errorw("Failed to upgrade WebSocket connection", "err", err)
		return
	}

	// The server's read deadline survives the upgrade.
	conn.SetReadDeadline(time.Time{})

	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, wsSendBuffer)}
	select {
	case m.register <- c:
	case <-m.done:
		conn.Close()
		return
	}

	go c.writeLoop()
	defer func() {
		select {
		case m.unregister <- c:
		case <-m.done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			wsLogger().Debugw("Read loop ended", "id", c.id, "err", err)
			return
		}
		if string(message) == "ping" {
			pong, _ := json.Marshal("pong")
			m.mutex.Lock()
			if m.clients[c] {
				select {
				case c.send <- pong:
				default:
				}
			}
			m.mutex.Unlock()
		}
	}
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			wsLogger().Debugw("Write failed", "id", c.id, "err", err)
			return
		}
	}
}
