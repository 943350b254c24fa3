package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/crudboot"
)

// RequireRole lets through callers authenticated by crudboot.JWTAuthMiddleware
// whose role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := crudboot.NewContext(c, nil).GetAuthContext()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, crudboot.ErrUnauthorized.New("authentication is required"))
			return
		}
		for _, role := range roles {
			if auth.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, crudboot.ApiError{
			ErrorCode: "FORBIDDEN",
			Message:   "role " + auth.Role + " may not change data",
		})
	}
}
