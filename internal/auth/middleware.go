package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by RequireUser.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
)

// MessageAuthRequired is the only detail a rejected caller ever sees.
const MessageAuthRequired = "Authentication required"

// RequireUser resolves the request credential and injects the principal into
// the request context. It does not perform RBAC checks; those belong to internal/rbac.
func RequireUser(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := v.ResolveRequest(c.Request)
		if !res.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": MessageAuthRequired})
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), res.UserID, res.Email))

		// Also store on gin context for handler convenience.
		c.Set(KeyUserID, res.UserID)
		c.Set(KeyEmail, res.Email)

		c.Next()
	}
}
