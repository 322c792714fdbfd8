package requestRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	adminService "github.com/yraj/hireahelper/internal/service/admin"
	requestService "github.com/yraj/hireahelper/internal/service/requests"

	"github.com/yraj/hireahelper/internal/middleware"
)

// RequestRoutes wires the help-request lifecycle endpoints. The admin-only
// deletes live on the same prefixes, gated by the admin middleware.
func RequestRoutes(router *mux.Router) {
	requestService := requestService.NewRequestService()
	adminService := adminService.NewAdminService()

	incoming := router.PathPrefix("/incoming-requests").Subrouter()
	incoming.Use(middleware.AuthMiddleware, middleware.ResponseWrapperMiddleware)
	incoming.HandleFunc("", requestService.HandleCreate).Methods(http.MethodPost)
	incoming.HandleFunc("/received/{userId}", requestService.HandleReceived).Methods(http.MethodGet)
	incoming.HandleFunc("/accept/{requestId}", requestService.HandleAccept).Methods(http.MethodPatch)
	incoming.HandleFunc("/decline/{requestId}", requestService.HandleDecline).Methods(http.MethodPatch)
	incoming.HandleFunc("/mark-seen", requestService.HandleMarkSeen).Methods(http.MethodPost)
	incoming.HandleFunc("/notifications/{userId}", requestService.HandleNotifications).Methods(http.MethodGet)
	incoming.HandleFunc("/notifications/read/{notificationId}", requestService.HandleNotificationRead).Methods(http.MethodPatch)

	incomingAdmin := router.PathPrefix("/incoming-requests").Subrouter()
	incomingAdmin.Use(middleware.AuthMiddleware, middleware.AdminMiddleware, middleware.ResponseWrapperMiddleware)
	incomingAdmin.HandleFunc("", requestService.HandleAll).Methods(http.MethodGet)
	incomingAdmin.HandleFunc("/{id}", adminService.HandleDeleteIncomingRequest).Methods(http.MethodDelete)

	sent := router.PathPrefix("/requests").Subrouter()
	sent.Use(middleware.AuthMiddleware, middleware.ResponseWrapperMiddleware)
	sent.HandleFunc("/sent/{userId}", requestService.HandleSent).Methods(http.MethodGet)

	sentAdmin := router.PathPrefix("/requests").Subrouter()
	sentAdmin.Use(middleware.AuthMiddleware, middleware.AdminMiddleware, middleware.ResponseWrapperMiddleware)
	sentAdmin.HandleFunc("/{id}", adminService.HandleDeleteRequest).Methods(http.MethodDelete)
}
