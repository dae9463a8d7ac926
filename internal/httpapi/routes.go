package httpapi

import (
	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/workspace"

	"github.com/gin-gonic/gin"
)

// Mount registers every API route on api, which the server mounts at /api.
// Each handler authenticates for itself; the page guard lets /api through.
func (h *Handlers) Mount(api *gin.RouterGroup) {
	requireUser := auth.RequireUser(h.Verifier)
	manageMembers := rbac.RequireProjectRole(h.Roles, "projectId", workspace.RoleOwner, workspace.RoleAdmin)

	api.GET("/validate-sso-token", h.ValidateSSOToken)

	a := api.Group("/auth")
	{
		a.POST("/register", h.Register)
		a.POST("/login", h.Login)
		a.POST("/logout", h.Logout)
		a.GET("/me", requireUser, h.Me)
		a.GET("/global-role", requireUser, h.GlobalRole)
		a.PATCH("/profile", requireUser, h.UpdateProfile)
		a.PATCH("/change-password", requireUser, h.ChangePassword)
	}

	p := api.Group("/projects/:projectId", requireUser)
	{
		p.GET("/role", h.ProjectRole)
		p.GET("/members", rbac.RequireProjectRole(h.Roles, "projectId"), h.ListMembers)
		p.POST("/members", manageMembers, h.AddMember)
		p.DELETE("/members/:memberId", manageMembers, h.RemoveMember)
	}

	api.GET("/user/projects", requireUser, h.UserProjects)
	api.GET("/credits/balance", requireUser, rbac.RequireProjectRole(h.Roles, "project_id"), h.CreditBalance)

	admin := api.Group("/admin", requireUser, rbac.RequireGlobalRole(h.Roles, rbac.RoleSuperAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users/:userId", h.UpdateUserStatus)
		admin.PATCH("/users/:userId/global-role", h.UpdateGlobalRole)
		admin.GET("/credits", h.ListCredits)
		admin.POST("/credits/:projectId/adjust", h.AdjustCredits)
	}
}
