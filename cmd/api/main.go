package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tictactoe-client/internal/config"
	"tictactoe-client/internal/handlers"
	"tictactoe-client/internal/services"
	"tictactoe-client/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.Setup(context.Background(), "tictactoe-server", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(context.Background())

	var store services.Store
	switch cfg.ServerStore {
	case "redis":
		redisService, err := services.NewRedisService(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		store = redisService
	default:
		store = services.NewMemoryStore()
	}
	defer store.Close()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(store, jwtService)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s (store: %s)", port, cfg.ServerStore)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
