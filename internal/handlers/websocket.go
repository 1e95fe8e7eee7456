package handlers

import (
	"net/http"
	"strings"

	"monobase/internal/models"
	"monobase/internal/services"
	"monobase/internal/utils"
	"monobase/internal/websocket"
	"monobase/pkg/logger"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *websocket.Hub
	callService *services.CallService
	upgrader    gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, callService *services.CallService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		callService: callService,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no origin
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					allowed = strings.TrimSpace(allowed)
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// HandleCallWebSocket subscribes the caller to the events and signaling of a
// call. Only the host and users who joined the call may subscribe.
func (h *WebSocketHandler) HandleCallWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	callID := c.Param("id")

	call, err := h.callService.GetCall(c.Request.Context(), callID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if call.Status == models.CallStatusEnded {
		utils.RespondError(c, services.ErrCallEnded)
		return
	}
	if call.HostID != userID && call.Participant(userID) == nil {
		logger.LogSecurityEvent("call_subscription_denied", userID, c.ClientIP(), map[string]interface{}{
			"call_id": callID,
		})
		utils.RespondError(c, services.ErrNotParticipant)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	logger.LogCallEvent("websocket_connected", callID, userID, map[string]interface{}{
		"ip":         c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
	})

	client := websocket.NewClient(conn, h.hub, userID, call.ID.Hex())
	client.Serve()

	logger.LogCallEvent("websocket_disconnected", callID, userID, nil)
}
