package adminRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/middleware"
	adminService "github.com/yraj/hireahelper/internal/service/admin"
)

func AdminRoutes(router *mux.Router) {
	adminService := adminService.NewAdminService()

	protectedRouter := router.PathPrefix("/admin").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware, middleware.AdminMiddleware, middleware.ResponseWrapperMiddleware)

	// User management
	protectedRouter.HandleFunc("/users", adminService.HandleUsers).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/users/{id}/block", adminService.HandleBlockUser).Methods(http.MethodPatch)
	protectedRouter.HandleFunc("/users/{id}/unblock", adminService.HandleUnblockUser).Methods(http.MethodPatch)
	protectedRouter.HandleFunc("/users/{id}", adminService.HandleDeleteUser).Methods(http.MethodDelete)

	// Task management
	protectedRouter.HandleFunc("/tasks", adminService.HandleTasks).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/tasks/{id}", adminService.HandleDeleteTask).Methods(http.MethodDelete)

	// Dispute management
	protectedRouter.HandleFunc("/disputes", adminService.HandleDisputes).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/disputes/{id}/resolve", adminService.HandleResolveDispute).Methods(http.MethodPatch)

	// Analytics and the audit feed
	protectedRouter.HandleFunc("/analytics", adminService.HandleAnalytics).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/actions", adminService.HandleActions).Methods(http.MethodGet)
}
