package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the caller identity set by the fronting gateway.
const UserHeader = "X-User-ID"

const userKey = "user_id"

// User stores the caller identity from UserHeader on the context. Requests
// without one are anonymous.
func User() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(UserHeader)); id != "" {
			c.Set(userKey, id)
		}
		c.Next()
	}
}

// UserID returns the identity stored by User, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}
