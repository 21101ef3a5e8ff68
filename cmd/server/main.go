// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quizloop/quizloop/internal/auth"
	"github.com/quizloop/quizloop/internal/cache"
	"github.com/quizloop/quizloop/internal/database"
	"github.com/quizloop/quizloop/internal/handlers"
	"github.com/quizloop/quizloop/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		// The engine skips action publishing without Redis; the game itself
		// is unaffected.
		logger.Warnf("Redis unavailable, action history disabled: %v", err)
	}

	srv := handlers.NewGameServer()

	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))

	// user endpoints
	r.Post("/user/create", handlers.CreateUserHandler)
	r.Post("/user/login", handlers.LoginHandler)
	r.Post("/user/claim", handlers.ClaimEphemeralHandler)

	// lobby endpoints
	r.Post("/lobby/create", handlers.CreateLobbyHandler(srv))
	r.Get("/lobby/list", handlers.ListLobbiesHandler(srv))
	r.Handle("/lobby/ws/*", handlers.LobbyWSHandler(logger, srv))

	// game websocket
	r.Handle("/game/ws/*", handlers.GameWSHandler(logger, srv))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
