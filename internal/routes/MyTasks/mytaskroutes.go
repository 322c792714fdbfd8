package myTaskRoutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/middleware"
	myTaskService "github.com/yraj/hireahelper/internal/service/mytasks"
)

func MyTaskRoutes(router *mux.Router) {
	myTaskService := myTaskService.NewMyTaskService()

	protectedRouter := router.PathPrefix("/mytasks").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware, middleware.ResponseWrapperMiddleware)
	protectedRouter.HandleFunc("/{userId}", myTaskService.HandleList).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{id}/status", myTaskService.HandleAdvance).Methods(http.MethodPatch)
}
