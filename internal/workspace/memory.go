package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu         sync.Mutex
	workspaces map[string]Workspace
	members    []Membership
	nextID     int64
	clock      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{workspaces: map[string]Workspace{}, clock: time.Now}
}

// PutWorkspace seeds a workspace.
func (r *MemoryRepository) PutWorkspace(w Workspace) Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = r.clock().UTC()
	}
	r.workspaces[w.ID] = w
	return w
}

func (r *MemoryRepository) Get(ctx context.Context, workspaceID string) (Workspace, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[workspaceID]
	return w, ok, nil
}

func matches(m Membership, p Principal) bool {
	if p.UserID != "" && m.UserID == p.UserID {
		return true
	}
	email := normalizeEmail(p.Email)
	return m.UserID == "" && email != "" && m.Email == email
}

func (r *MemoryRepository) ActiveMembership(ctx context.Context, workspaceID string, p Principal) (Membership, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  Membership
		found bool
	)
	for _, m := range r.members {
		if m.WorkspaceID != workspaceID || !m.IsActive || !matches(m, p) {
			continue
		}
		// rows claimed by the account win over unclaimed invites
		if !found || (best.Pending() && !m.Pending()) {
			best, found = m, true
		}
	}
	return best, found, nil
}

func (r *MemoryRepository) ListMembers(ctx context.Context, workspaceID string) ([]Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Membership{}
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListForUser(ctx context.Context, p Principal) ([]Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Membership{}
	for _, m := range r.members {
		if !m.IsActive || !matches(m, p) {
			continue
		}
		if w, ok := r.workspaces[m.WorkspaceID]; ok && !w.IsActive {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) AddMember(ctx context.Context, m Membership) (Membership, error) {
	m, err := validateNewMember(m)
	if err != nil {
		return Membership{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.WorkspaceID != m.WorkspaceID {
			continue
		}
		if existing.Email == m.Email || (m.UserID != "" && existing.UserID == m.UserID) {
			return Membership{}, ErrAlreadyMember
		}
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = r.clock().UTC()
	r.members = append(r.members, m)
	return m, nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, workspaceID string, memberID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == memberID && m.WorkspaceID == workspaceID {
			r.members[i].IsActive = false
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) CreatePersonalWorkspace(ctx context.Context, userID, email string) (Workspace, error) {
	email = normalizeEmail(email)
	if userID == "" || email == "" {
		return Workspace{}, ErrInvalidInput
	}
	w := r.PutWorkspace(Workspace{
		Name:        PersonalWorkspaceName(userID),
		Description: personalWorkspaceDescription(email),
		Environment: personalEnvironment,
		IsActive:    true,
		OwnerUserID: userID,
	})
	if _, err := r.AddMember(ctx, Membership{
		WorkspaceID:   w.ID,
		Email:         email,
		UserID:        userID,
		Role:          RoleViewer,
		AddedByUserID: userID,
	}); err != nil {
		return Workspace{}, err
	}
	return w, nil
}

func (r *MemoryRepository) LinkPendingInvitations(ctx context.Context, userID, email string) (int64, error) {
	email = normalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i, m := range r.members {
		if m.UserID == "" && m.Email == email {
			r.members[i].UserID = userID
			n++
		}
	}
	return n, nil
}
