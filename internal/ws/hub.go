package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub is the in-memory connection registry: tablet id → live client.
// It is never persisted; after a restart it rebuilds from reconnects.
// At most one client per tablet id: registering a new one supersedes
// (and closes) the old.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client, closing any prior client for the same tablet.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	old := h.clients[c.TabletID]
	h.clients[c.TabletID] = c
	if old != nil {
		old.closeSend()
	}
	h.mu.Unlock()

	if old != nil {
		log.Printf("[WS] tablet %s reconnected, superseding previous connection", c.TabletID)
	} else {
		log.Printf("[WS] tablet %s connected", c.TabletID)
	}
}

// Unregister removes the client only if it is still the registered one, so a
// stale read pump exiting after a reconnect cannot evict the successor.
// Returns whether this client was the one removed; callers use that to decide
// if the tablet actually went offline.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	removed := h.clients[c.TabletID] == c
	if removed {
		delete(h.clients, c.TabletID)
		c.closeSend()
	}
	h.mu.Unlock()

	if removed {
		log.Printf("[WS] tablet %s disconnected", c.TabletID)
	}
	return removed
}

// Kick force-closes a tablet's connection, e.g. after a revoke or unpair.
func (h *Hub) Kick(tabletID string) bool {
	h.mu.Lock()
	c := h.clients[tabletID]
	if c != nil {
		delete(h.clients, tabletID)
		c.closeSend()
	}
	h.mu.Unlock()

	if c != nil {
		log.Printf("[WS] tablet %s kicked", tabletID)
	}
	return c != nil
}

func (h *Hub) IsOnline(tabletID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[tabletID]
	return ok
}

// Send pushes one message to a tablet. Returns false when the tablet is not
// connected or its send buffer is full; it never blocks on the network.
func (h *Hub) Send(tabletID, kind string, data interface{}) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[WS] marshal %s payload failed: %v", kind, err)
		return false
	}
	msg := Message{Type: kind, Data: payload, Timestamp: time.Now().Unix()}
	frame, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	h.mu.RLock()
	c, ok := h.clients[tabletID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if !c.trySend(frame) {
		log.Printf("[WS] dropping %s for tablet %s (connection closing or buffer full)", kind, tabletID)
		return false
	}
	return true
}
