package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"

	"github.com/gin-gonic/gin"
)

// ProjectRole reports the caller's membership role; role is null when the
// caller has no active membership.
func (h *Handlers) ProjectRole(c *gin.Context) {
	wid := c.Param("projectId")
	uid, _ := principal(c)
	role, found, err := h.Roles.ProjectRole(c.Request.Context(), uid, wid)
	if err != nil {
		internalError(c, "project role lookup failed", err)
		return
	}
	var out *workspace.Role
	if found {
		out = &role
	}
	c.JSON(http.StatusOK, gin.H{"role": out, "projectId": wid})
}

func (h *Handlers) ListMembers(c *gin.Context) {
	members, err := h.Workspaces.ListMembers(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		internalError(c, "member listing failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AddMember invites an email to the workspace. A registered account is
// linked at once; otherwise the row stays pending until that email signs up.
func (h *Handlers) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		fail(c, http.StatusBadRequest, "Email is required")
		return
	}
	if !validEmail(email) {
		fail(c, http.StatusBadRequest, messageInvalidEmail)
		return
	}
	roleName := req.Role
	if strings.TrimSpace(roleName) == "" {
		roleName = string(workspace.RoleMember)
	}
	role, ok := workspace.ParseRole(roleName)
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid role")
		return
	}

	// Only an owner hands out ownership.
	if d, _ := rbac.DecisionFrom(c); role == workspace.RoleOwner && !d.ViaGlobal && d.Role != workspace.RoleOwner {
		fail(c, http.StatusForbidden, "Only project owners can add owners")
		return
	}

	ctx := c.Request.Context()
	wid := c.Param("projectId")
	if _, found, err := h.Workspaces.Get(ctx, wid); err != nil {
		internalError(c, "workspace lookup failed", err)
		return
	} else if !found {
		fail(c, http.StatusNotFound, "Project not found")
		return
	}

	u, registered, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		internalError(c, "user lookup failed", err)
		return
	}
	uid, _ := principal(c)
	m := workspace.Membership{WorkspaceID: wid, Email: email, Role: role, AddedByUserID: uid}
	if registered {
		m.UserID = u.UserID
	}
	m, err = h.Workspaces.AddMember(ctx, m)
	switch {
	case errors.Is(err, workspace.ErrAlreadyMember):
		fail(c, http.StatusBadRequest, "Email already added to project")
		return
	case errors.Is(err, workspace.ErrInvalidRole), errors.Is(err, workspace.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "Invalid member")
		return
	case err != nil:
		internalError(c, "member insert failed", err)
		return
	}

	h.recordAudit(c, func(s *audit.Service) error {
		return s.LogWorkspaceAction(ctx, audit.EventTypeMemberAdded, h.actor(c), wid,
			"added "+email+" as "+string(role), map[string]any{"email": email, "role": string(role), "pending": !registered})
	})

	if registered {
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User added to project", "type": "user", "member": m})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Email added to project successfully. User will be added when they sign up.",
		"type":    "email_mapping",
		"member":  m,
	})
}

func (h *Handlers) RemoveMember(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Param("memberId"), 10, 64)
	if err != nil || memberID <= 0 {
		fail(c, http.StatusBadRequest, "Invalid member id")
		return
	}

	ctx := c.Request.Context()
	wid := c.Param("projectId")
	err = h.Workspaces.Deactivate(ctx, wid, memberID)
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		fail(c, http.StatusNotFound, "Member not found")
		return
	case err != nil:
		internalError(c, "member removal failed", err)
		return
	}

	h.recordAudit(c, func(s *audit.Service) error {
		return s.LogWorkspaceAction(ctx, audit.EventTypeMemberRemoved, h.actor(c), wid,
			"removed member "+strconv.FormatInt(memberID, 10), map[string]any{"member_id": memberID})
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UserProjects lists the caller's active memberships, including invites
// addressed to the caller's email that were never claimed.
func (h *Handlers) UserProjects(c *gin.Context) {
	uid, email := principal(c)
	projects, err := h.Workspaces.ListForUser(c.Request.Context(), workspace.Principal{UserID: uid, Email: email})
	if err != nil {
		internalError(c, "project listing failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}
