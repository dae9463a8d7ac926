package workspace

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Role is a membership role inside one workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ParseRole accepts the four workspace roles, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return r, true
	}
	return "", false
}

// Permissions is the capability set stored alongside a membership.
type Permissions struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
	Admin  bool `json:"admin"`
}

// Permissions maps a role to its capability set. Unknown roles get member
// permissions, matching how invites without an explicit role are stored.
func (r Role) Permissions() Permissions {
	switch r {
	case RoleViewer:
		return Permissions{Read: true}
	case RoleAdmin:
		return Permissions{Read: true, Write: true, Delete: true}
	case RoleOwner:
		return Permissions{Read: true, Write: true, Delete: true, Admin: true}
	default:
		return Permissions{Read: true, Write: true}
	}
}

// CanManageMembers reports whether the role may invite or remove members.
func (r Role) CanManageMembers() bool { return r == RoleOwner || r == RoleAdmin }

// Membership links a user (or a not-yet-registered email) to a workspace.
// Rows are deactivated, never deleted.
type Membership struct {
	ID            int64       `json:"id"`
	WorkspaceID   string      `json:"project_id"`
	Email         string      `json:"email"`
	UserID        string      `json:"user_id,omitempty"`
	Role          Role        `json:"role"`
	Permissions   Permissions `json:"permissions"`
	AddedByUserID string      `json:"added_by_user_id,omitempty"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Pending reports whether the invite has not been claimed by an account yet.
func (m Membership) Pending() bool { return m.UserID == "" }

// Workspace is a project in dashboard terms.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Environment string    `json:"environment"`
	IsActive    bool      `json:"is_active"`
	OwnerUserID string    `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Principal identifies who a membership lookup is for. Email matches
// unclaimed invites only.
type Principal struct {
	UserID string
	Email  string
}

// PersonalWorkspaceName derives the stable name of a user's personal
// workspace: the first 8 hex digits of md5(user_id), upper-cased.
func PersonalWorkspaceName(userID string) string {
	sum := md5.Sum([]byte(userID))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8]) + "-MySpace"
}

func personalWorkspaceDescription(email string) string {
	return "Personal workspace for " + email
}

const personalEnvironment = "development"
