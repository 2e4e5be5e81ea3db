package auth

import (
	"net/http"
	"strings"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/response"
	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

func AuthMiddleware(provider Provider, logger internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			userID, err := provider.Resolve(c.Request.Context(), token)
			if err == nil {
				c.Set(UserIDKey, userID)
				c.Next()
				return
			}
			logger.Warnf("[request_id=%s] auth failed: %v", c.GetString("request_id"), err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.NewAppError(http.StatusUnauthorized, "Unauthorized"))
	}
}
