package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub fans slot capacity changes out to clients watching a doctor's calendar.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint]map[*client]bool // doctor id -> clients
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint]map[*client]bool),
	}
}

func (h *Hub) subscribe(doctorID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[doctorID] == nil {
		h.subscribers[doctorID] = make(map[*client]bool)
	}
	h.subscribers[doctorID][c] = true
}

func (h *Hub) unsubscribe(doctorID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subscribers[doctorID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscribers, doctorID)
		}
	}
}

// BroadcastSlot pushes the slot's current capacity to everyone watching its
// doctor. Called after a booking or lifecycle transaction commits.
func (h *Hub) BroadcastSlot(s *models.TimeSlot) {
	if s == nil {
		return
	}

	message, err := json.Marshal(map[string]interface{}{
		"type":               "slot_update",
		"slot_id":            s.ID,
		"doctor_id":          s.DoctorID,
		"date":               s.Date.Format("2006-01-02"),
		"start_time":         s.StartTime,
		"current_bookings":   s.CurrentBookings,
		"max_capacity":       s.MaxCapacity,
		"remaining_capacity": s.RemainingCapacity(),
		"is_available":       s.IsAvailable,
	})
	if err != nil {
		log.Printf("error marshaling slot update: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.subscribers[s.DoctorID]))
	for c := range h.subscribers[s.DoctorID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(message); err != nil {
			log.Printf("error writing slot update: %v", err)
		}
	}
}

type WebSocketHandler struct {
	hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/slots", h.HandleSlotFeed)
}

// HandleSlotFeed upgrades the connection and streams slot updates for one
// doctor until the client disconnects.
func (h *WebSocketHandler) HandleSlotFeed(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseUint(r.URL.Query().Get("doctor_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	c := &client{conn: conn}
	h.hub.subscribe(uint(doctorID), c)

	go func() {
		defer func() {
			h.hub.unsubscribe(uint(doctorID), c)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
		}
	}()
}
