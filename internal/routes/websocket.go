package routes

import (
	"monobase/internal/handlers"

	"github.com/gin-gonic/gin"
)

func SetupWebSocketRoutes(router *gin.Engine, auth gin.HandlerFunc, deps Dependencies) {
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CallService, deps.Config.Server.CORS.AllowedOrigins)

	// WebSocket endpoints
	ws := router.Group("/ws")
	{
		// Call events and WebRTC signaling for call participants
		ws.GET("/calls/:id", auth, wsHandler.HandleCallWebSocket)
	}
}
