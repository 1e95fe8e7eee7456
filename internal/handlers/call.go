package handlers

import (
	"net/http"
	"time"

	"monobase/internal/models"
	"monobase/internal/services"
	"monobase/internal/utils"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	callService *services.CallService
	iceService  *services.IceService
}

func NewCallHandler(callService *services.CallService, iceService *services.IceService) *CallHandler {
	return &CallHandler{
		callService: callService,
		iceService:  iceService,
	}
}

type createCallRequest struct {
	BookingID string `json:"booking_id" binding:"required,max=128"`
}

type joinCallRequest struct {
	Role models.ParticipantRole `json:"role" binding:"required,oneof=patient provider observer"`
}

func (h *CallHandler) CreateCall(c *gin.Context) {
	var req createCallRequest
	if !bindJSON(c, &req) {
		return
	}

	call, err := h.callService.CreateCall(c.Request.Context(), req.BookingID, c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, call)
}

func (h *CallHandler) GetCall(c *gin.Context) {
	call, err := h.callService.GetCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, call)
}

// ListCalls returns the calls of a booking, newest first.
func (h *CallHandler) ListCalls(c *gin.Context) {
	bookingID := c.Query("booking_id")
	if bookingID == "" {
		utils.ValidationErrorResponse(c, map[string]string{"booking_id": "This field is required"})
		return
	}

	calls, err := h.callService.CallsForBooking(c.Request.Context(), bookingID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"calls": calls,
		"total": len(calls),
	})
}

// JoinCall adds the caller to the call and returns the ICE servers for the
// peer connection alongside the call state.
func (h *CallHandler) JoinCall(c *gin.Context) {
	var req joinCallRequest
	if !bindJSON(c, &req) {
		return
	}

	call, servers, err := h.callService.JoinCall(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req.Role)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"call":         call,
		"ice_servers":  servers,
		"ttl":          int64(h.iceService.TTL().Seconds()),
		"generated_at": time.Now(),
	})
}

func (h *CallHandler) LeaveCall(c *gin.Context) {
	call, err := h.callService.LeaveCall(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Left call", call)
}

func (h *CallHandler) EndCall(c *gin.Context) {
	call, err := h.callService.EndCall(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Call ended", call)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if details := utils.BindingErrors(err); details != nil {
			utils.ValidationErrorResponse(c, details)
			return false
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
