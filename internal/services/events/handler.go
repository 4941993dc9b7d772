package events

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: validate origin once the frontend host is pinned down
		return true
	},
}

// WebSocketHandler exposes the hub's event feed over /ws/updates.
type WebSocketHandler struct {
	hub *Hub
}

// NewWebSocketHandler creates a handler bound to the given hub.
func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleUpdatesConnection upgrades the request and streams corpus events to
// the client until it disconnects.
func (h *WebSocketHandler) HandleUpdatesConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, 64),
	}

	select {
	case h.hub.register <- sub:
	case <-h.hub.done:
		conn.Close()
		return
	}

	// Separate read and write goroutines prevent a deadlock between the
	// two directions of the connection.
	go sub.writePump()
	go sub.readPump(h.hub)
}

// writePump drains the subscriber queue to the socket and keeps the
// connection alive with pings. Exits when the hub closes the queue.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the feed is one-way) and unregisters the
// subscriber when the connection drops.
func (s *subscriber) readPump(hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- s:
		case <-hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
