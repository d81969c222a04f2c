package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// EventHub fans ledger events out to connected clients. The client keys its
// status transitions off these resolution events rather than off timers.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *EventHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *EventHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Broadcast sends {kind, payload} to every connected client. Write errors
// are ignored; the read loop notices dead peers and unregisters them.
func (h *EventHub) Broadcast(kind string, payload any) {
	msg, _ := json.Marshal(map[string]any{"kind": kind, "payload": payload})
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
}
