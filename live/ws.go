package live

import (
	"context"
	"net/http"
	"time"

	"trendaryo/mq"
	"trendaryo/repository"
	"trendaryo/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Handlers struct {
	Hub      *Hub
	Products repository.ProductRepository
	Upgrader websocket.Upgrader
}

// NewHandlers accepts upgrades from the listed origins; none allows any.
func NewHandlers(hub *Hub, products repository.ProductRepository, origins []string) *Handlers {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handlers{
		Hub:      hub,
		Products: products,
		Upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		}},
	}
}

// GET /api/v1/products/:id/live
func (h *Handlers) ProductLive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	p, err := h.Products.FindByID(ctx, id)
	cancel()
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("product", id).Msg("websocket upgrade")
		return
	}
	client := NewClient(id)
	// current state first so the subscriber never starts blind
	client.Send <- encode(StockUpdate{
		Type:      mq.StockChanged,
		ProductID: p.ID,
		Stock:     p.Stock,
		Status:    string(p.Status),
		Timestamp: time.Now().Unix(),
	})
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	go writePump(conn, client)
	go readPump(conn, client, h.Hub)
}

func writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for pongs and the close; subscribers send nothing.
func readPump(conn *websocket.Conn, c *Client, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		_ = conn.Close()
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
