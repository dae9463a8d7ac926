package httpapi

import (
	"errors"
	"net/http"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListUsers(c *gin.Context) {
	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		internalError(c, "user listing failed", err)
		return
	}
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, viewOf(u))
	}
	c.JSON(http.StatusOK, out)
}

type userStatusRequest struct {
	Action string `json:"action"`
}

var statusForAction = map[string]users.Status{
	"suspend":   users.StatusSuspended,
	"unsuspend": users.StatusActive,
	"approve":   users.StatusActive,
	"reject":    users.StatusRejected,
}

// UpdateUserStatus suspends, reinstates, approves or rejects an account.
func (h *Handlers) UpdateUserStatus(c *gin.Context) {
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, ok := statusForAction[req.Action]
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid action")
		return
	}

	target := c.Param("userId")
	if uid, _ := principal(c); uid == target {
		fail(c, http.StatusBadRequest, "You cannot change your own account status")
		return
	}

	ctx := c.Request.Context()
	u, err := h.Users.SetStatus(ctx, target, status)
	switch {
	case errors.Is(err, users.ErrNotFound):
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	case err != nil:
		internalError(c, "status update failed", err)
		return
	}

	h.recordAudit(c, func(s *audit.Service) error {
		return s.LogUserAction(ctx, audit.EventTypeUserStatusChanged, h.actor(c), target,
			req.Action+" "+u.Email, map[string]any{"action": req.Action, "status": string(status)})
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewOf(u), "action": req.Action})
}

type globalRoleRequest struct {
	GlobalRole string `json:"global_role"`
}

func (h *Handlers) UpdateGlobalRole(c *gin.Context) {
	var req globalRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	role, ok := rbac.ParseGlobalRole(req.GlobalRole)
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid global role")
		return
	}

	target := c.Param("userId")
	if uid, _ := principal(c); uid == target {
		fail(c, http.StatusBadRequest, "You cannot change your own global role")
		return
	}

	ctx := c.Request.Context()
	u, err := h.Users.SetGlobalRole(ctx, target, role)
	switch {
	case errors.Is(err, users.ErrNotFound):
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	case err != nil:
		internalError(c, "global role update failed", err)
		return
	}

	h.recordAudit(c, func(s *audit.Service) error {
		return s.LogUserAction(ctx, audit.EventTypeGlobalRoleChanged, h.actor(c), target,
			"set global role of "+u.Email+" to "+role, map[string]any{"global_role": role})
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewOf(u)})
}
