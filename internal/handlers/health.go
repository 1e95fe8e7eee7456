package handlers

import (
	"context"
	"net/http"
	"time"

	"monobase/internal/services"

	"github.com/gin-gonic/gin"
)

// HealthCheckFunc reports whether a dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error

type HealthHandler struct {
	version    string
	iceService *services.IceService
	database   HealthCheckFunc
	startedAt  time.Time
}

func NewHealthHandler(version string, iceService *services.IceService, database HealthCheckFunc) *HealthHandler {
	return &HealthHandler{
		version:    version,
		iceService: iceService,
		database:   database,
		startedAt:  time.Now(),
	}
}

// Health reports liveness. It answers 503 when MongoDB is unreachable.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "connected"
	if h.database != nil {
		if err := h.database(ctx); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "error: " + err.Error()
		}
	}

	servers := h.iceService.Servers()
	relays := 0
	for _, s := range servers {
		if s.IsRelay() {
			relays++
		}
	}

	healthy := "healthy"
	if status != http.StatusOK {
		healthy = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    healthy,
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now(),
		"database":  dbStatus,
		"ice": gin.H{
			"servers":    len(servers),
			"relays":     relays,
			"updated_at": h.iceService.UpdatedAt(),
		},
	})
}
