package handlers

import (
	"sync"
	"time"
)

// Hub fans ops-feed events out to connected admin sockets, grouped by shop.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*WSClient]bool),
	}
}

func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.Shop] == nil {
		h.clients[client.Shop] = make(map[*WSClient]bool)
	}
	h.clients[client.Shop][client] = true
}

func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.Shop] != nil {
		delete(h.clients[client.Shop], client)
		if len(h.clients[client.Shop]) == 0 {
			delete(h.clients, client.Shop)
		}
	}
}

func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for client := range set {
			client.Send(payload)
		}
	}
}

// SendToShop delivers to the shop's sockets and to operator sockets, which
// register under the empty shop.
func (h *Hub) SendToShop(shop string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[shop] {
		client.Send(payload)
	}
	if shop != "" {
		for client := range h.clients[""] {
			client.Send(payload)
		}
	}
}

// Publish implements the engine's feed. Events carrying a shop go to that
// shop only.
func (h *Hub) Publish(kind string, data any) {
	payload := mustJSON(WSMessage{Type: kind, Data: data, ServerTime: time.Now().UnixMilli()})
	if m, ok := data.(map[string]any); ok {
		if shop, ok := m["shop"].(string); ok && shop != "" {
			h.SendToShop(normalizeShop(shop), payload)
			return
		}
	}
	h.Broadcast(payload)
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
