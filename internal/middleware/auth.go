package middleware

import (
	"net/http"
	"strings"

	"monobase/internal/utils"
	"monobase/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuth validates the bearer token issued by the identity service and puts
// user_id and role on the context. Browsers cannot set headers on websocket
// upgrades, so a token query parameter is accepted as well.
func JWTAuth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Missing authorization token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateUserJWT(secret, issuer, tokenString)
		if err != nil {
			logger.LogSecurityEvent("invalid_token", "", c.ClientIP(), map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole rejects requests whose token role is not one of roles. It must
// run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		logger.LogSecurityEvent("forbidden_role", c.GetString("user_id"), c.ClientIP(), map[string]interface{}{
			"path": c.Request.URL.Path,
			"role": role,
		})
		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		return token, token != ""
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}
