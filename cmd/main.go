package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	databasego "github.com/yraj/hireahelper/internal/database.go"
	"github.com/yraj/hireahelper/internal/routes"
)

func main() {
	databasego.InitDB()
	router := routes.RegisterAllRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Server is running on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
