package push

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is the payload pushed to a connected client when its training job
// reaches a terminal state.
type Event struct {
	Type       string `json:"type"`
	TrainingID string `json:"training_id"`
	ModelName  string `json:"model_name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// EventTrainingStatus is the event type emitted on terminal transitions.
const EventTrainingStatus = "training.status"

const sendBuffer = 8

// Conn is the minimal write surface the hub needs from a live connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client represents one registered connection for one owner.
type Client struct {
	ownerID string
	conn    Conn
	send    chan Event
	done    chan struct{}
	once    sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub maps owner IDs to their single live push connection. It is purely a
// delivery hint: entries are held in memory only and lost on restart, and
// a missed event is recovered by the client polling job status.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

// NewHub creates an empty connection registry.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register binds a connection to an owner, superseding and closing any
// previous connection registered for the same owner.
func (h *Hub) Register(ownerID string, conn Conn) *Client {
	client := &Client{
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan Event, sendBuffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	prev := h.clients[ownerID]
	h.clients[ownerID] = client
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	go client.writeLoop(h.logger)

	h.logger.Debug().Str("owner_id", ownerID).Msg("push: client registered")
	return client
}

// Unregister removes the client if it is still the owner's current
// registration. A stale client (already superseded) or a connection that
// never registered is a no-op.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	if h.clients[client.ownerID] == client {
		delete(h.clients, client.ownerID)
	}
	h.mu.Unlock()
	client.close()
}

// Notify delivers the event to the owner's live connection, if any.
// Delivery is at-most-once: no connection, or a connection too slow to
// drain its buffer, drops the event.
func (h *Hub) Notify(ownerID string, event Event) bool {
	h.mu.RLock()
	client := h.clients[ownerID]
	h.mu.RUnlock()

	if client == nil {
		h.logger.Debug().Str("owner_id", ownerID).Msg("push: no live connection, event dropped")
		return false
	}

	select {
	case client.send <- event:
		return true
	default:
		h.logger.Warn().Str("owner_id", ownerID).Msg("push: send buffer full, event dropped")
		return false
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writeLoop(logger zerolog.Logger) {
	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Str("owner_id", c.ownerID).Msg("push: write failed")
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
