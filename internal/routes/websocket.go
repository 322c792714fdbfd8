package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/handlers"
	"github.com/yraj/hireahelper/internal/middleware"
	messageService "github.com/yraj/hireahelper/internal/service/messages"
)

// RegisterWebSocketRoutes registers all WebSocket related routes
func RegisterWebSocketRoutes(router *mux.Router) {
	wsHandler := handlers.NewWebSocketHandler(messageService.NewMessageService())

	// WebSocket endpoint with authentication via query parameter
	router.Handle("/ws", middleware.WebSocketAuthMiddleware(http.HandlerFunc(wsHandler.HandleWebSocket))).Methods(http.MethodGet)
}
