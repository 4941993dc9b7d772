package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Event types broadcast on the corpus feed.
const (
	TypeProjectCreated = "project_created"
	TypeFileAdded      = "file_added"
	TypeFileDeleted    = "file_deleted"
)

// Event is one corpus mutation, broadcast as JSON to every subscriber.
type Event struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id,omitempty"`
	FileID    string    `json:"file_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	At        time.Time `json:"at"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte // buffered outbound queue, owned by the hub loop
}

// Hub fans corpus events out to all connected WebSocket clients. One room,
// one event loop goroutine: register/unregister/broadcast all funnel through
// channels, so subscriber state needs no locking.
type Hub struct {
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan Event
	subs       map[*subscriber]bool
	done       chan struct{}
	stopped    chan struct{}
}

// NewHub creates the hub without starting its event loop.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan Event, 256),
		subs:       make(map[*subscriber]bool),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start begins the hub event loop.
func (h *Hub) Start() {
	log.Println("🔄 Starting corpus event hub...")

	go func() {
		defer close(h.stopped)
		for {
			select {
			case <-h.done:
				for sub := range h.subs {
					close(sub.send)
					delete(h.subs, sub)
				}
				return

			case sub := <-h.register:
				h.subs[sub] = true
				log.Printf("  Event subscriber joined (total: %d)", len(h.subs))

			case sub := <-h.unregister:
				if _, ok := h.subs[sub]; ok {
					delete(h.subs, sub)
					close(sub.send)
					log.Printf("  Event subscriber left (remaining: %d)", len(h.subs))
				}

			case event := <-h.broadcast:
				payload, err := json.Marshal(event)
				if err != nil {
					log.Printf("  Failed to marshal event: %v", err)
					continue
				}
				for sub := range h.subs {
					select {
					case sub.send <- payload:
					default:
						// Slow consumer - drop it rather than
						// stall the hub.
						delete(h.subs, sub)
						close(sub.send)
					}
				}
			}
		}
	}()

	log.Println("✓ Corpus event hub started")
}

// Publish enqueues an event for broadcast. Never blocks the caller: if the
// hub is stopped or the queue is full the event is dropped - the feed is a
// notification channel, not a durable log.
func (h *Hub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		log.Printf("  Event queue full, dropping %s", event.Type)
	}
}

// Shutdown stops the event loop and closes all subscriber queues.
func (h *Hub) Shutdown() {
	log.Println("🛑 Shutting down corpus event hub...")
	close(h.done)
	<-h.stopped
	log.Println("✓ Corpus event hub shutdown complete")
}
