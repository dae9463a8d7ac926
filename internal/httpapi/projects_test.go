package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectFixture struct {
	*harness
	wid      string
	owner    string
	admin    string
	viewer   string
	root     string
	outsider string
}

func newProjectFixture(t *testing.T) projectFixture {
	t.Helper()
	hs := newHarness(t)
	ctx := context.Background()
	w := hs.ws.PutWorkspace(workspace.Workspace{Name: "Team", IsActive: true})

	f := projectFixture{
		harness:  hs,
		wid:      w.ID,
		owner:    hs.seed(t, "owner-1", "owner@example.com", "user", users.StatusActive),
		admin:    hs.seed(t, "admin-1", "admin@example.com", "user", users.StatusActive),
		viewer:   hs.seed(t, "viewer-1", "viewer@example.com", "user", users.StatusActive),
		root:     hs.seed(t, "root-1", "root@example.com", "super_admin", users.StatusActive),
		outsider: hs.seed(t, "out-1", "out@example.com", "user", users.StatusActive),
	}
	for id, role := range map[string]workspace.Role{
		"owner-1":  workspace.RoleOwner,
		"admin-1":  workspace.RoleAdmin,
		"viewer-1": workspace.RoleViewer,
	} {
		u, _, err := hs.users.FindByID(ctx, id)
		require.NoError(t, err)
		_, err = hs.ws.AddMember(ctx, workspace.Membership{WorkspaceID: w.ID, Email: u.Email, UserID: id, Role: role})
		require.NoError(t, err)
	}
	return f
}

func (f projectFixture) path(suffix string) string {
	return "/api/projects/" + f.wid + suffix
}

func TestProjectRole(t *testing.T) {
	f := newProjectFixture(t)

	w := f.do(t, http.MethodGet, f.path("/role"), nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"role": "admin", "projectId": f.wid}, decode(t, w))

	// No membership means no role, even for super_admin.
	for _, tok := range []string{f.outsider, f.root} {
		w = f.do(t, http.MethodGet, f.path("/role"), nil, tok)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["role"])
	}

	w = f.do(t, http.MethodGet, "/api/projects/other/role", nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["role"])
}

func TestListMembers(t *testing.T) {
	f := newProjectFixture(t)

	w := f.do(t, http.MethodGet, f.path("/members"), nil, f.viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["members"], 3)

	w = f.do(t, http.MethodGet, f.path("/members"), nil, f.root)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, f.path("/members"), nil, f.outsider)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", decode(t, w)["message"])

	w = f.do(t, http.MethodGet, f.path("/members"), nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddMember(t *testing.T) {
	f := newProjectFixture(t)

	w := f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "out@example.com", "role": "member"}, f.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "user", out["type"])
	assert.Equal(t, "User added to project", out["message"])
	assert.Equal(t, "out-1", out["member"].(map[string]any)["user_id"])

	w = f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "new@example.com"}, f.admin)
	require.Equal(t, http.StatusCreated, w.Code)
	out = decode(t, w)
	assert.Equal(t, "email_mapping", out["type"])
	assert.Equal(t, "member", out["member"].(map[string]any)["role"])

	w = f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "NEW@example.com"}, f.admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already added to project", decode(t, w)["message"])

	events := f.audit.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventTypeMemberAdded, events[0].Type)
	assert.Equal(t, "admin-1", events[0].ActorUserID)
	assert.Equal(t, f.wid, events[0].WorkspaceID)
}

func TestAddMember_Authorization(t *testing.T) {
	f := newProjectFixture(t)
	body := map[string]string{"email": "x@example.com", "role": "viewer"}

	w := f.do(t, http.MethodPost, f.path("/members"), body, f.viewer)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "y@example.com", "role": "owner"}, f.admin)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "y@example.com", "role": "owner"}, f.owner)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, f.path("/members"), map[string]string{"email": "z@example.com", "role": "owner"}, f.root)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestAddMember_Validation(t *testing.T) {
	f := newProjectFixture(t)

	cases := map[string]struct {
		body map[string]string
		want string
	}{
		"missing email": {map[string]string{"role": "member"}, "Email is required"},
		"bad email":     {map[string]string{"email": "nope"}, "Invalid email format"},
		"bad role":      {map[string]string{"email": "a@example.com", "role": "king"}, "Invalid role"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, f.path("/members"), tc.body, f.owner)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, decode(t, w)["message"])
		})
	}

	w := f.do(t, http.MethodPost, "/api/projects/missing/members", map[string]string{"email": "a@example.com"}, f.root)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", decode(t, w)["message"])
}

func TestRemoveMember(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	m, found, err := f.ws.ActiveMembership(ctx, f.wid, workspace.Principal{UserID: "viewer-1"})
	require.NoError(t, err)
	require.True(t, found)

	w := f.do(t, http.MethodDelete, f.path("/members/"+strconv.FormatInt(m.ID, 10)), nil, f.viewer)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, f.path("/members/"+strconv.FormatInt(m.ID, 10)), nil, f.owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true}, decode(t, w))

	_, found, err = f.ws.ActiveMembership(ctx, f.wid, workspace.Principal{UserID: "viewer-1"})
	require.NoError(t, err)
	assert.False(t, found)

	// The removed viewer loses access at once.
	w = f.do(t, http.MethodGet, f.path("/members"), nil, f.viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, f.path("/members/999"), nil, f.owner)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Member not found", decode(t, w)["message"])

	w = f.do(t, http.MethodDelete, f.path("/members/abc"), nil, f.owner)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserProjects(t *testing.T) {
	f := newProjectFixture(t)

	w := f.do(t, http.MethodGet, "/api/user/projects", nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	projects := decode(t, w)["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, f.wid, projects[0].(map[string]any)["project_id"])

	w = f.do(t, http.MethodGet, "/api/user/projects", nil, f.outsider)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["projects"])
}
