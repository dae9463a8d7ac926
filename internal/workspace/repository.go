package workspace

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("workspace: not found")
	ErrAlreadyMember = errors.New("workspace: email already added to project")
	ErrInvalidRole   = errors.New("workspace: invalid role")
	ErrInvalidInput  = errors.New("workspace: invalid input")
)

// Repository persists workspaces and their memberships.
type Repository interface {
	Get(ctx context.Context, workspaceID string) (Workspace, bool, error)

	// ActiveMembership returns the active row for the exact
	// (principal, workspace) pair. found=false means no access.
	ActiveMembership(ctx context.Context, workspaceID string, p Principal) (Membership, bool, error)
	ListMembers(ctx context.Context, workspaceID string) ([]Membership, error)
	ListForUser(ctx context.Context, p Principal) ([]Membership, error)

	// AddMember inserts an active row. UserID may be empty for a pending
	// invite. Any existing row for the same email returns ErrAlreadyMember.
	AddMember(ctx context.Context, m Membership) (Membership, error)
	Deactivate(ctx context.Context, workspaceID string, memberID int64) error

	CreatePersonalWorkspace(ctx context.Context, userID, email string) (Workspace, error)
	LinkPendingInvitations(ctx context.Context, userID, email string) (int64, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateNewMember(m Membership) (Membership, error) {
	m.Email = normalizeEmail(m.Email)
	m.WorkspaceID = strings.TrimSpace(m.WorkspaceID)
	if m.Email == "" || m.WorkspaceID == "" {
		return Membership{}, ErrInvalidInput
	}
	role, ok := ParseRole(string(m.Role))
	if !ok {
		return Membership{}, ErrInvalidRole
	}
	m.Role = role
	m.Permissions = role.Permissions()
	m.IsActive = true
	return m, nil
}
