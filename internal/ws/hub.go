package ws

import (
	"encoding/json"
	"sync"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/metrics"
)

// Hub fans wallet events out to every open connection of the affected user
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WalletSubscribers.Inc()
	logger.Debug("wallet ws registered", "user_id", c.UserID)
}

// Unregister removes c and closes its Send channel; safe to call twice
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
	metrics.WalletSubscribers.Dec()
}

// Publish implements wallet.Publisher for server-side events
func (h *Hub) Publish(ev domain.WalletEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error("marshal wallet event", "error", err)
		return
	}
	h.SendToUser(ev.UserID, msg)
}

// SendToUser queues msg on every connection of userID and returns how many
// accepted it. A connection with a full buffer misses the message; the next
// wallet read catches it up.
func (h *Hub) SendToUser(userID int64, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients[userID] {
		select {
		case c.Send <- msg:
			n++
		default:
			logger.Warn("wallet ws buffer full, dropping event", "user_id", userID)
		}
	}
	return n
}

// Connections returns the number of open sockets for userID
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
