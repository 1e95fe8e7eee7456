package handlers

import (
	"time"

	"monobase/internal/ice"
	"monobase/internal/services"
	"monobase/internal/utils"
	"monobase/pkg/logger"

	"github.com/gin-gonic/gin"
)

type IceHandler struct {
	iceService *services.IceService
}

func NewIceHandler(iceService *services.IceService) *IceHandler {
	return &IceHandler{
		iceService: iceService,
	}
}

// GetICEServers returns the ICE servers clients should hand to
// RTCPeerConnection.
func (h *IceHandler) GetICEServers(c *gin.Context) {
	servers := h.iceService.Servers()

	logger.WithField("user_id", c.GetString("user_id")).
		WithField("server_count", len(servers)).
		Debug("ICE servers requested")

	utils.SuccessResponse(c, iceServersPayload(servers, h.iceService.TTL()))
}

type updateICEServersRequest struct {
	// Servers uses the ICE_SERVERS syntax. Blank resets to the defaults.
	Servers string `json:"servers" binding:"max=8192"`
}

// UpdateICEServers replaces the ICE server list at runtime. A malformed list
// is rejected and the current one stays in effect.
func (h *IceHandler) UpdateICEServers(c *gin.Context) {
	var req updateICEServersRequest
	if !bindJSON(c, &req) {
		return
	}

	servers, err := h.iceService.Update(req.Servers, c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "ICE servers updated", iceServersPayload(servers, h.iceService.TTL()))
}

func iceServersPayload(servers []ice.Server, ttl time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"ice_servers":  servers,
		"ttl":          int64(ttl.Seconds()),
		"generated_at": time.Now(),
	}
}
