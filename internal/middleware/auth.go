package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Auth gates /v1 and /v1beta with the configured gateway key. The key
// may arrive as `Authorization: Bearer <key>`, `x-api-key` (Anthropic
// SDKs) or `x-goog-api-key` (Gemini SDKs). A nil validator disables the
// check entirely.
func Auth(validate func(key string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validate == nil {
			c.Next()
			return
		}

		key := extractKey(c)
		if !validate(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key"})
			return
		}
		c.Next()
	}
}

func extractKey(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return strings.TrimSpace(auth[7:])
		}
		return strings.TrimSpace(auth)
	}
	if key := c.GetHeader("x-api-key"); key != "" {
		return key
	}
	if key := c.GetHeader("x-goog-api-key"); key != "" {
		return key
	}
	return c.Query("key")
}
