package rbac

import (
	"net/http"
	"slices"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/workspace"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by the middlewares in this package.
const (
	KeyGlobalRole = "global_role"
	KeyDecision   = "rbac_decision"
)

const (
	messageForbidden = "Insufficient permissions"
	messageInternal  = "Internal server error"
)

// RequireGlobalRole allows callers whose global role is in allowed.
// super_admin always passes. Must run after auth.RequireUser.
func RequireGlobalRole(r *Resolver, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": auth.MessageAuthRequired})
			return
		}

		info, found, err := r.GlobalRole(c.Request.Context(), uid)
		if err != nil {
			logger.FromGin(c).Error("global role lookup failed", "user_id", uid, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": messageInternal})
			return
		}
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": auth.MessageAuthRequired})
			return
		}

		if !IsSuperAdmin(info.GlobalRole) && !slices.Contains(allowed, info.GlobalRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": messageForbidden})
			return
		}
		c.Set(KeyGlobalRole, info.GlobalRole)
		c.Next()
	}
}

// RequireProjectRole authorizes the caller against the workspace named by
// the route parameter param (or the query parameter of the same name).
// An empty allowed set accepts any active membership.
func RequireProjectRole(r *Resolver, param string, allowed ...workspace.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": auth.MessageAuthRequired})
			return
		}

		wid := strings.TrimSpace(c.Param(param))
		if wid == "" {
			wid = strings.TrimSpace(c.Query(param))
		}
		if wid == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": param + " is required"})
			return
		}

		d, err := r.Authorize(c.Request.Context(), uid, wid, allowed...)
		if err != nil {
			logger.FromGin(c).Error("authorization failed", "user_id", uid, "workspace_id", wid, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": messageInternal})
			return
		}
		if !d.Allowed {
			logger.FromGin(c).Debug("workspace access denied", "user_id", uid, "workspace_id", wid, "role", string(d.Role))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": messageForbidden})
			return
		}

		c.Set(KeyGlobalRole, d.GlobalRole)
		c.Set(KeyDecision, d)
		c.Next()
	}
}

// DecisionFrom returns the decision stored by RequireProjectRole.
func DecisionFrom(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(KeyDecision)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}
