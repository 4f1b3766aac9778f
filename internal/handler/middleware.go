package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenAuth rejects requests whose token query parameter does not match
// the configured API token.
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.Query("token")
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
