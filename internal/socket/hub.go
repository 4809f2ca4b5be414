package socket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type client struct {
	conn          *websocket.Conn
	role          string
	warehouseCode string
}

// Hub tracks all connected WebSocket clients, keyed by user email, along
// with the role and warehouse they registered with.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
	}
}

// Register adds a new client to the Hub.
func (h *Hub) Register(userID, role, warehouseCode string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = &client{conn: conn, role: role, warehouseCode: warehouseCode}
	log.Printf("WebSocket client registered: %s", userID)
}

// Unregister removes a client from the Hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		log.Printf("WebSocket client unregistered: %s", userID)
	}
}

// Send delivers a message to a single client. An offline client is not an
// error.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cl, ok := h.clients[userID]
	if !ok {
		log.Printf("WebSocket client not found, could not send message: %s", userID)
		return nil
	}

	return cl.conn.WriteMessage(websocket.TextMessage, message)
}

// WarehouseAudience returns the connected users who should hear about
// activity in a warehouse: its admins, plus superadmins, who see every
// warehouse.
func (h *Hub) WarehouseAudience(warehouseCode string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var audience []string
	for userID, cl := range h.clients {
		switch cl.role {
		case "superadmin":
			audience = append(audience, userID)
		case "admin":
			if cl.warehouseCode == warehouseCode {
				audience = append(audience, userID)
			}
		}
	}
	return audience
}
