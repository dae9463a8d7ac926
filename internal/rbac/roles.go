package rbac

import "strings"

// Global role names. They are stored in pype_voice_users.global_role.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// ParseGlobalRole accepts the three global roles, case-insensitively.
func ParseGlobalRole(s string) (string, bool) {
	switch r := strings.ToLower(strings.TrimSpace(s)); r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return r, true
	}
	return "", false
}

// GlobalPermissions are the capabilities that transcend workspaces.
type GlobalPermissions struct {
	Role                    string `json:"role"`
	CanViewAllProjects      bool   `json:"canViewAllProjects"`
	CanViewAllAgents        bool   `json:"canViewAllAgents"`
	CanViewAllCalls         bool   `json:"canViewAllCalls"`
	CanManageGlobalSettings bool   `json:"canManageGlobalSettings"`
}

// PermissionsFor maps a global role to its permissions. Unknown roles get
// the permissions of a plain user.
func PermissionsFor(role string) GlobalPermissions {
	switch role {
	case RoleSuperAdmin:
		return GlobalPermissions{
			Role:                    RoleSuperAdmin,
			CanViewAllProjects:      true,
			CanViewAllAgents:        true,
			CanViewAllCalls:         true,
			CanManageGlobalSettings: true,
		}
	case RoleAdmin:
		return GlobalPermissions{
			Role:               RoleAdmin,
			CanViewAllProjects: true,
			CanViewAllAgents:   true,
			CanViewAllCalls:    true,
		}
	default:
		return GlobalPermissions{Role: RoleUser}
	}
}
