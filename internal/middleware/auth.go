package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Authentication gates every API route behind a static bearer token. An empty
// configured token disables the check, which keeps local development simple.
func Authentication(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("Authorization")
		if strings.TrimPrefix(got, "Bearer ") != token {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "Unauthorized", "message": "invalid or missing bearer token"}})
			return
		}
		c.Next()
	}
}
