package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the admin key on protected routes.
const APIKeyHeader = "X-API-Key"

// RequireAdmin guards admin routes with a bcrypt-hashed API key. An
// empty hash disables the routes entirely.
func RequireAdmin(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "admin endpoints are disabled",
			})
			c.Abort()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + APIKeyHeader + " header",
			})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
