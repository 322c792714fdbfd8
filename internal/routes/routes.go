package routes

import (
	"github.com/gorilla/mux"

	myTaskRoutes "github.com/yraj/hireahelper/internal/routes/MyTasks"
	requestRoutes "github.com/yraj/hireahelper/internal/routes/RequestRoutes"
	adminRoutes "github.com/yraj/hireahelper/internal/routes/admin"
	messageRoutes "github.com/yraj/hireahelper/internal/routes/messages"
)

// List of all route registration functions
var routeModules = []func(*mux.Router){
	requestRoutes.RequestRoutes,
	myTaskRoutes.MyTaskRoutes,
	messageRoutes.MessageRoutes,
	adminRoutes.AdminRoutes,
}

// Register all routes dynamically
func RegisterAllRoutes() *mux.Router {
	router := mux.NewRouter()

	for _, register := range routeModules {
		register(router)
	}
	RegisterWebSocketRoutes(router)

	return router
}
