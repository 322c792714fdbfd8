package handlers

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yraj/hireahelper/internal/logger"
	"github.com/yraj/hireahelper/internal/middleware"
	"github.com/yraj/hireahelper/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, replace with proper origin checking
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub   *models.Hub
	relay models.MessageRelay
	log   *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(relay models.MessageRelay) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   models.GetHub(),
		relay: relay,
		log:   logger.NewLogger("websocket-handler"),
	}
}

// HandleWebSocket upgrades the connection and registers it with the hub.
// Channel membership starts empty (admins aside); the client joins rooms
// explicitly with join frames and must re-join after a reconnect.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(middleware.UserContextKey).(jwt.MapClaims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID := middleware.UserID(claims)
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &models.Client{
		Hub:     h.hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ConnID:  uuid.NewString(),
		UserID:  userID,
		IsAdmin: middleware.IsAdmin(claims),
		Relay:   h.relay,
	}

	h.hub.Register <- client
	h.log.Info("Client connected", "conn_id", client.ConnID, "user_id", userID, "is_admin", client.IsAdmin)

	go client.WritePump()
	go client.ReadPump()
}
