package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnly lets through only users whose role is admin. The identity is
// loaded from the database by Session on every request, so role changes
// apply at once.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := Current(c).Identity // Get identity from context
		// Check if the request is authenticated
		if user == nil {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if user role is admin
		if !user.IsAdmin() {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
