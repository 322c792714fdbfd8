package messageRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/middleware"
	messageService "github.com/yraj/hireahelper/internal/service/messages"
)

func MessageRoutes(router *mux.Router) {
	messageService := messageService.NewMessageService()

	protectedRouter := router.PathPrefix("/messages").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware, middleware.ResponseWrapperMiddleware)
	protectedRouter.HandleFunc("/conversation", messageService.HandleCreateConversation).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/conversation/{conversationId}", messageService.HandleMessages).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/conversations/user/{userId}", messageService.HandleConversationsForUser).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/conversations/{id}", messageService.HandleConversation).Methods(http.MethodGet)
}
