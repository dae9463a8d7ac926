package rbac

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/workspace"
	"github.com/zoheir79/whispey-sub004/pkg/logger"
)

// MembershipLookup is the slice of workspace.Repository the resolver needs.
type MembershipLookup interface {
	ActiveMembership(ctx context.Context, workspaceID string, p workspace.Principal) (workspace.Membership, bool, error)
}

// Resolver derives global and workspace roles for a principal.
type Resolver struct {
	users    auth.PrincipalStore
	members  MembershipLookup
	verifier *auth.Verifier
}

func NewResolver(users auth.PrincipalStore, members MembershipLookup, verifier *auth.Verifier) *Resolver {
	return &Resolver{users: users, members: members, verifier: verifier}
}

// GlobalRoleInfo is the global role of one user with derived permissions.
type GlobalRoleInfo struct {
	GlobalRole  string            `json:"globalRole"`
	Permissions GlobalPermissions `json:"permissions"`
	UserID      string            `json:"userId"`
	Email       string            `json:"email"`
}

// GlobalRole loads the user's global role. found=false when the user does
// not exist.
func (r *Resolver) GlobalRole(ctx context.Context, userID string) (GlobalRoleInfo, bool, error) {
	u, ok, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return GlobalRoleInfo{}, false, fmt.Errorf("loading global role: %w", err)
	}
	if !ok {
		return GlobalRoleInfo{}, false, nil
	}
	role := u.GlobalRole
	if role == "" {
		role = RoleUser
	}
	return GlobalRoleInfo{
		GlobalRole:  role,
		Permissions: PermissionsFor(role),
		UserID:      u.UserID,
		Email:       u.Email,
	}, true, nil
}

// GlobalRoleForRequest authenticates r first. An unauthenticated request
// yields found=false and no error.
func (r *Resolver) GlobalRoleForRequest(req *http.Request) (GlobalRoleInfo, bool, error) {
	res := r.verifier.ResolveRequest(req)
	if !res.Authenticated {
		return GlobalRoleInfo{}, false, nil
	}
	return r.GlobalRole(req.Context(), res.UserID)
}

// ProjectRole returns the active membership role for the exact
// (principal, workspace) pair. userIDOrEmail containing "@" is treated as an
// email. found=false means no access; there is no default role.
func (r *Resolver) ProjectRole(ctx context.Context, userIDOrEmail, workspaceID string) (workspace.Role, bool, error) {
	key := strings.TrimSpace(userIDOrEmail)
	if key == "" || strings.TrimSpace(workspaceID) == "" {
		return "", false, nil
	}

	p, err := r.principal(ctx, key)
	if err != nil {
		return "", false, err
	}
	m, ok, err := r.members.ActiveMembership(ctx, workspaceID, p)
	if err != nil {
		return "", false, fmt.Errorf("loading membership: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (r *Resolver) principal(ctx context.Context, key string) (workspace.Principal, error) {
	if strings.Contains(key, "@") {
		u, ok, err := r.users.FindByEmail(ctx, key)
		if err != nil {
			return workspace.Principal{}, fmt.Errorf("loading user: %w", err)
		}
		if !ok {
			return workspace.Principal{Email: key}, nil
		}
		return workspace.Principal{UserID: u.UserID, Email: u.Email}, nil
	}

	u, ok, err := r.users.FindByID(ctx, key)
	if err != nil {
		return workspace.Principal{}, fmt.Errorf("loading user: %w", err)
	}
	if !ok {
		return workspace.Principal{UserID: key}, nil
	}
	return workspace.Principal{UserID: u.UserID, Email: u.Email}, nil
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed    bool           `json:"allowed"`
	Role       workspace.Role `json:"role,omitempty"`
	GlobalRole string         `json:"global_role"`
	// ViaGlobal is set when super_admin granted access regardless of membership.
	ViaGlobal bool `json:"via_global"`
}

// Authorize decides a workspace-scoped action. super_admin is always
// allowed. Otherwise the caller needs an active membership whose role is in
// allowed; an empty allowed set accepts any membership role.
func (r *Resolver) Authorize(ctx context.Context, userID, workspaceID string, allowed ...workspace.Role) (Decision, error) {
	info, found, err := r.GlobalRole(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{}, nil
	}

	d := Decision{GlobalRole: info.GlobalRole}
	if IsSuperAdmin(info.GlobalRole) {
		d.Allowed, d.ViaGlobal = true, true
		// Role is informational here; a failed lookup leaves it empty.
		if role, member, err := r.ProjectRole(ctx, userID, workspaceID); err != nil {
			logger.From(ctx).Warn("membership lookup failed for super_admin", "user_id", userID, "workspace_id", workspaceID, "err", err)
		} else if member {
			d.Role = role
		}
		return d, nil
	}

	role, member, err := r.ProjectRole(ctx, userID, workspaceID)
	if err != nil {
		return Decision{}, err
	}
	if !member {
		return d, nil
	}
	d.Role = role
	d.Allowed = len(allowed) == 0 || slices.Contains(allowed, role)
	return d, nil
}
