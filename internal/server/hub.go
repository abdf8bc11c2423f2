package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game/rules"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSMessage is the envelope pushed to spectators.
type WSMessage struct {
	Type  string      `json:"type"`
	Room  string      `json:"room,omitempty"`
	Event rules.Event `json:"event"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	room string
}

// Hub fans game events out to WebSocket spectators of each room. Events come
// from the game event bus, which publishes while a room's lock is held, so
// Publish never blocks: a full hub or a slow client loses events.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan rules.Event
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	bufferSize   int
	logger       *zap.Logger

	connected atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a hub. Call Run to start it.
func NewHub(writeTimeout time.Duration, bufferSize int, logger *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan rules.Event, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		bufferSize:   bufferSize,
		logger:       logger,
	}
}

// Attach subscribes the hub to bus and returns the subscription handle.
func (h *Hub) Attach(bus *rules.EventBus) int {
	return bus.Subscribe(h.Publish)
}

// Publish queues an event for the spectators of its room.
func (h *Hub) Publish(evt rules.Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Connected returns the number of open spectator connections.
func (h *Hub) Connected() int64 {
	return h.connected.Load()
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
			h.logger.Debug("spectator connected", zap.String("room", client.room))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("spectator disconnected", zap.String("room", client.room))
			}

		case evt := <-h.broadcast:
			payload, err := json.Marshal(WSMessage{Type: "game_event", Room: evt.GameID, Event: evt})
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			for client := range h.clients {
				if client.room != evt.GameID {
					continue
				}
				select {
				case client.send <- payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *wsClient) {
	delete(h.clients, client)
	close(client.send)
	h.connected.Add(-1)
}

// ServeWS upgrades a spectator connection for the room named in ?room=.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, h.bufferSize),
		room: room,
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump only watches for the close; spectators do not send commands.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
