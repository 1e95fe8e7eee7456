package routes

import (
	"monobase/internal/handlers"
	"monobase/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers operator endpoints. They need a token with the
// admin role.
func SetupAdminRoutes(v1 *gin.RouterGroup, auth, rateLimit gin.HandlerFunc, iceHandler *handlers.IceHandler) {
	admin := v1.Group("/admin")
	admin.Use(auth, rateLimit, middleware.RequireRole("admin"))
	{
		admin.GET("/ice-servers", iceHandler.GetICEServers)
		admin.PUT("/ice-servers", iceHandler.UpdateICEServers)
	}
}
