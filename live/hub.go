// Package live pushes product stock updates to websocket subscribers.
// Each product has its own room.
package live

import (
	"context"
	"encoding/json"
	"time"

	"trendaryo/mq"

	"github.com/rs/zerolog/log"
)

const sendBuffer = 16

type Client struct {
	Send chan []byte
	Room string
}

func NewClient(room string) *Client {
	return &Client{Send: make(chan []byte, sendBuffer), Room: room}
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans messages out to the clients of a room. The rooms map is owned
// by the Run goroutine.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for _, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
			}
			h.rooms = nil
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues data for every client of room.
func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.done:
	}
}

// StockUpdate is the message sent to subscribers of a product.
type StockUpdate struct {
	Type      string `json:"type"`
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

func encode(u StockUpdate) []byte {
	data, err := json.Marshal(u)
	if err != nil {
		log.Error().Err(err).Msg("encode stock update")
		return nil
	}
	return data
}

// HandleEvent is the mq handler that relays stock-changed events.
func (h *Hub) HandleEvent(_ context.Context, e mq.Event) error {
	if e.Stock == nil {
		return nil
	}
	if data := encode(StockUpdate{
		Type:      e.Name,
		ProductID: e.EntityID,
		Stock:     *e.Stock,
		Status:    e.Status,
		Timestamp: time.Now().Unix(),
	}); data != nil {
		h.Broadcast(e.EntityID, data)
	}
	return nil
}
