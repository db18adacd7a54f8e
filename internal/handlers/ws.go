package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rmazur/go-task-manager/internal/models"
)

// WSHub fans task events out to the owning user's open websocket connections.
type WSHub struct {
	connections map[string]map[*websocket.Conn]bool
	mutex       sync.Mutex
}

func NewWSHub() *WSHub {
	return &WSHub{connections: make(map[string]map[*websocket.Conn]bool)}
}

// BroadcastTaskEvent sends a task event to every connection of the given user.
func (hub *WSHub) BroadcastTaskEvent(ownerID, event string, task *models.Task) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	conns, exists := hub.connections[ownerID]
	if !exists {
		return
	}

	message, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"task_id": task.ID.Hex(),
		"title":   task.Title,
		"status":  task.Status,
	})
	if err != nil {
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			delete(conns, conn)
			conn.Close()
		}
	}
}

// checkOrigin allows any origin when ALLOWED_ORIGINS is unset, otherwise only
// those on the comma-separated list.
func checkOrigin(r *http.Request) bool {
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	if allowed == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, entry := range strings.Split(allowed, ",") {
		if strings.TrimSpace(entry) == origin {
			return true
		}
	}
	return false
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ip := clientIP(r)
	if h.RateLimiter != nil && !h.RateLimiter.Allow(ip) {
		sendError(w, "Too many WebSocket connection attempts", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithError(err).Error("websocket upgrade failed")
		return
	}

	h.WSHub.mutex.Lock()
	if h.WSHub.connections[userID] == nil {
		h.WSHub.connections[userID] = make(map[*websocket.Conn]bool)
	}
	h.WSHub.connections[userID][conn] = true
	h.WSHub.mutex.Unlock()

	// the stream is one-way; the read loop only detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.mutex.Lock()
			delete(h.WSHub.connections[userID], conn)
			h.WSHub.mutex.Unlock()
			conn.Close()
			return
		}
	}
}
