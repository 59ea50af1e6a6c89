package handlers

import (
	"github.com/gin-gonic/gin"

	"tictactoe-client/internal/middleware"
	"tictactoe-client/internal/services"
)

// NewRouter wires the game server routes over store.
func NewRouter(store services.Store, jwtService *services.JWTService) *gin.Engine {
	gameEngine := services.NewGameEngine(store)
	wsHandler := NewWebSocketHandler(gameEngine)
	gameEngine.SetBroadcaster(wsHandler)

	authHandler := NewAuthHandler(store, jwtService)
	userHandler := NewUserHandler(store)
	gameHandler := NewGameHandler(gameEngine)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/register", authHandler.Register)

	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(jwtService, store), middleware.RateLimitMiddleware(store))
	{
		protected.GET("/auth/me", userHandler.GetCurrentUser)
		protected.POST("/auth/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)
		protected.GET("/stats", gameHandler.GetStats)

		game := protected.Group("/game")
		{
			game.GET("", gameHandler.GetGame)
			game.POST("/create_game_session", gameHandler.CreateGameSession)
			game.POST("/player_move", gameHandler.PlayerMove)
			game.POST("/pc_move", gameHandler.PCMove)
		}
	}

	return router
}
