package ws

import (
	"encoding/json"
	"sync"

	"refpay/internal/domain"
)

// Client represents a single WebSocket connection with partner context.
type Client struct {
	PartnerID uint
	Role      string
	Send      chan []byte
	Hub       *Hub // set so Close() can unregister
	mu        sync.Mutex
	closed    bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// Hub maintains the set of active feed connections. Partners see their own
// payout events; admin connections see everything.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// partnerID -> clients (one partner can have multiple connections)
	byPartner map[uint]map[*Client]struct{}
	admins    map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		byPartner: make(map[uint]map[*Client]struct{}),
		admins:    make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byPartner[c.PartnerID] == nil {
		h.byPartner[c.PartnerID] = make(map[*Client]struct{})
	}
	h.byPartner[c.PartnerID][c] = struct{}{}
	if c.Role == domain.RoleAdmin {
		h.admins[c] = struct{}{}
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	delete(h.admins, c)
	if m := h.byPartner[c.PartnerID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byPartner, c.PartnerID)
		}
	}
}

// BroadcastToPartner sends payload to the partner's connections and to every
// admin connection.
func (h *Hub) BroadcastToPartner(partnerID uint, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	targets := make(map[*Client]struct{}, len(h.admins)+2)
	for c := range h.byPartner[partnerID] {
		targets[c] = struct{}{}
	}
	for c := range h.admins {
		targets[c] = struct{}{}
	}
	h.mu.RUnlock()
	for c := range targets {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// BroadcastAdmins sends payload to admin connections only.
func (h *Hub) BroadcastAdmins(payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.admins))
	for c := range h.admins {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
