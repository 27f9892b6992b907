package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open websocket connection of an authenticated user.
type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type envelope struct {
	userID  uuid.UUID // uuid.Nil means every client
	payload []byte
}

// Hub fans out notification and catalog events to connected clients. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	outbound   chan envelope
	done       chan struct{}
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Register and Unregister return immediately once the hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToUser queues payload for every connection of userID. It never blocks: when
// the queue is full the message is dropped, the notification row is still stored.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.enqueue(envelope{userID: userID, payload: payload})
}

// Broadcast queues payload for every connected client.
func (h *Hub) Broadcast(payload []byte) {
	h.enqueue(envelope{payload: payload})
}

// SendJSON marshals v and sends it to userID, or to everyone when userID is uuid.Nil.
func (h *Hub) SendJSON(userID uuid.UUID, v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}
	if userID == uuid.Nil {
		h.Broadcast(msg)
		return
	}
	h.SendToUser(userID, msg)
}

func (h *Hub) enqueue(e envelope) {
	select {
	case h.outbound <- e:
	default:
		h.log.Warn("ws queue full, dropping message", zap.String("user_id", e.userID.String()))
	}
}

// Run serves registrations and deliveries until ctx is cancelled, then closes every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for c := range conns {
					c.Conn.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			return

		case c := <-h.register:
			if h.clients[c.UserID] == nil {
				h.clients[c.UserID] = make(map[*Client]bool)
			}
			h.clients[c.UserID][c] = true
			h.log.Debug("ws client connected", zap.String("user_id", c.UserID.String()))

		case c := <-h.unregister:
			h.remove(c)

		case e := <-h.outbound:
			if e.userID == uuid.Nil {
				for _, conns := range h.clients {
					h.write(conns, e.payload)
				}
				continue
			}
			h.write(h.clients[e.userID], e.payload)
		}
	}
}

func (h *Hub) write(conns map[*Client]bool, payload []byte) {
	for c := range conns {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	c.Conn.Close()
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
}
