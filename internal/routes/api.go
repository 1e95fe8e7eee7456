package routes

import (
	"monobase/internal/config"
	"monobase/internal/handlers"
	"monobase/internal/middleware"
	"monobase/internal/services"
	"monobase/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Dependencies are the long-lived components the routes are wired to.
type Dependencies struct {
	Config      *config.Config
	Hub         *websocket.Hub
	IceService  *services.IceService
	CallService *services.CallService
	RateLimiter *middleware.RateLimiter
	HealthCheck handlers.HealthCheckFunc
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	auth := middleware.JWTAuth(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)
	// keyed by user_id, so it runs after auth on protected groups
	rateLimit := middleware.RateLimit(cfg.Security.RateLimit, deps.RateLimiter)

	iceHandler := handlers.NewIceHandler(deps.IceService)
	callHandler := handlers.NewCallHandler(deps.CallService, deps.IceService)
	healthHandler := handlers.NewHealthHandler(cfg.App.Version, deps.IceService, deps.HealthCheck)

	// Global middleware
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Server.CORS))

	// Health check
	router.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no auth required), limited per client IP
		v1.GET("/ice-servers", rateLimit, iceHandler.GetICEServers)

		// Protected routes
		protected := v1.Group("/")
		protected.Use(auth, rateLimit)
		{
			webrtc := protected.Group("/webrtc")
			{
				webrtc.GET("/ice-servers", iceHandler.GetICEServers)
			}

			calls := protected.Group("/calls")
			{
				calls.POST("", callHandler.CreateCall)
				calls.GET("", callHandler.ListCalls)
				calls.GET("/:id", callHandler.GetCall)
				calls.POST("/:id/join", callHandler.JoinCall)
				calls.POST("/:id/leave", callHandler.LeaveCall)
				calls.POST("/:id/end", callHandler.EndCall)
			}
		}
	}

	SetupAdminRoutes(v1, auth, rateLimit, iceHandler)
	SetupWebSocketRoutes(router, auth, deps)
}
