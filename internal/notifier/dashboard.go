package notifier

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// feedMessage is the envelope pushed to every subscriber, adapted from
// the teacher dashboard's WebSocketMessage.
type feedMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type feedClient struct {
	id   string
	send chan feedMessage
}

// DashboardFeed broadcasts decision-cycle summaries and sell signals to
// any number of read-only WebSocket subscribers. Adapted from
// internal/dashboard/broadcaster.go's register/unregister/broadcast
// select loop, repurposed from "receive broker postbacks" to "push
// decision-cycle summaries to a read-only feed" — subscribers never
// send anything back, they only watch.
type DashboardFeed struct {
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[*feedClient]bool
	nextID   int

	broadcast  chan feedMessage
	register   chan *feedClient
	unregister chan *feedClient

	logger *log.Logger
}

// NewDashboardFeed builds a feed. Run must be started in its own
// goroutine before Handler starts serving subscribers.
func NewDashboardFeed(logger *log.Logger) *DashboardFeed {
	return &DashboardFeed{
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan feedMessage, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		logger:     logger,
	}
}

// Run drives the broadcaster loop until ctx is cancelled.
func (f *DashboardFeed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for c := range f.clients {
				close(c.send)
			}
			f.clients = make(map[*feedClient]bool)
			f.mu.Unlock()
			return

		case c := <-f.register:
			f.mu.Lock()
			f.clients[c] = true
			f.mu.Unlock()

		case c := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.mu.Unlock()

		case msg := <-f.broadcast:
			f.mu.RLock()
			for c := range f.clients {
				select {
				case c.send <- msg:
				default:
					f.logger.Printf("[notifier:dashboard] client %s send buffer full, dropping message", c.id)
				}
			}
			f.mu.RUnlock()
		}
	}
}

// Handler upgrades incoming requests to WebSocket connections and
// streams feedMessages to them until the client disconnects.
func (f *DashboardFeed) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			f.logger.Printf("[notifier:dashboard] upgrade: %v", err)
			return
		}
		defer conn.Close()

		f.mu.Lock()
		f.nextID++
		client := &feedClient{id: fmt.Sprintf("client-%d", f.nextID), send: make(chan feedMessage, 32)}
		f.mu.Unlock()

		f.register <- client
		defer func() { f.unregister <- client }()

		// Drain (and discard) inbound frames so the connection's read
		// side stays alive; subscribers are read-only.
		go func() {
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for msg := range client.send {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (f *DashboardFeed) publish(msgType string, data interface{}) {
	select {
	case f.broadcast <- feedMessage{Type: msgType, Data: data, Timestamp: time.Now().Format(time.RFC3339)}:
	default:
		f.logger.Printf("[notifier:dashboard] broadcast buffer full, dropping %s", msgType)
	}
}

func (f *DashboardFeed) NotifyCycleSummary(_ context.Context, summary signals.ExecutionSummary) {
	f.publish("cycle_summary", summary)
}

func (f *DashboardFeed) NotifySellSignals(_ context.Context, sells []signals.SellSignal) {
	if len(sells) == 0 {
		return
	}
	f.publish("sell_signals", sells)
}
