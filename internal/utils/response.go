package utils

import (
	"errors"
	"net/http"
	"time"

	"monobase/internal/ice"
	"monobase/internal/services"
	"monobase/pkg/logger"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a stable machine code next to the human message.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes of the call and ICE domains.
const (
	CodeInvalidCallID      = "INVALID_CALL_ID"
	CodeInvalidRole        = "INVALID_ROLE"
	CodeCallNotFound       = "CALL_NOT_FOUND"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodeCallEnded          = "CALL_ENDED"
	CodeCallFull           = "CALL_FULL"
	CodeConcurrentUpdate   = "CONCURRENT_UPDATE"
	CodeInvalidICEServer   = "INVALID_ICE_SERVER"
	CodeICEServersRejected = "ICE_SERVERS_REJECTED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

type domainError struct {
	target error
	status int
	code   string
}

// domainErrors is matched in order with errors.Is.
var domainErrors = []domainError{
	{services.ErrInvalidCallID, http.StatusBadRequest, CodeInvalidCallID},
	{services.ErrInvalidRole, http.StatusBadRequest, CodeInvalidRole},
	{services.ErrCallNotFound, http.StatusNotFound, CodeCallNotFound},
	{services.ErrNotParticipant, http.StatusForbidden, CodeNotParticipant},
	{services.ErrCallEnded, http.StatusConflict, CodeCallEnded},
	{services.ErrCallFull, http.StatusConflict, CodeCallFull},
	{services.ErrConcurrentUpdate, http.StatusConflict, CodeConcurrentUpdate},
	{ice.ErrRejectedByWebRTC, http.StatusBadRequest, CodeICEServersRejected},
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// SuccessResponseWithMessage sends a successful response with message
func SuccessResponseWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// CreatedResponse sends a 201 with the created resource
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// RespondError writes err with the status and code of its domain error. A
// malformed ICE descriptor reports the offending entry in details. Anything
// unrecognised is logged and answered with a bare 500.
func RespondError(c *gin.Context, err error) {
	var formatErr *ice.FormatError
	if errors.As(err, &formatErr) {
		writeError(c, http.StatusBadRequest, CodeInvalidICEServer, formatErr.Error(), map[string]string{
			"descriptor": formatErr.Input,
			"reason":     formatErr.Err.Error(),
		})
		return
	}

	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			writeError(c, d.status, d.code, err.Error(), nil)
			return
		}
	}

	logger.LogError(err, "Request failed", map[string]interface{}{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"user_id": c.GetString("user_id"),
	})
	writeError(c, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
}

// ErrorResponse sends an error response for failures outside the domain
// taxonomy: bad bodies, auth, rate limiting.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	writeError(c, statusCode, statusCode2Code(statusCode), message, nil)
}

// ValidationErrorResponse sends request binding failures per field.
func ValidationErrorResponse(c *gin.Context, details map[string]string) {
	writeError(c, http.StatusBadRequest, CodeValidation, "Validation failed", details)
}

func writeError(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func statusCode2Code(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		return "UNKNOWN_ERROR"
	}
}
