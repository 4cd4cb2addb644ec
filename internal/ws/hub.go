package ws

import (
	"context"
	"log/slog"
	"sync"
)

// Hub tracks the open tab connections for counting and teardown. It does not
// broadcast: fan-out between tabs happens through the shared store and the
// notification bus, never through the gateway.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	log *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logger,
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// remaining tab.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("[HUB] Tab connected", "user", client.tab.User().ID, "tabs", count)

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("[HUB] Tab disconnected", "user", client.tab.User().ID, "tabs", count)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.cancel()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.log.Info("[HUB] Shut down, all tabs closed")
			return
		}
	}
}

// Count returns the number of connected tabs.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
