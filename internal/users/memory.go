package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
// It is not intended for production use.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]User
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]User{}, clock: time.Now}
}

// Put inserts or replaces a record verbatim. Test fixtures use it to seed
// roles and statuses that registration never produces.
func (s *MemoryStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = NormalizeEmail(u.Email)
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.clock().UTC()
	}
	s.byID[u.UserID] = u
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	email = NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.findByEmailLocked(email)
	return u, ok, nil
}

func (s *MemoryStore) findByEmailLocked(email string) (User, bool) {
	if email == "" {
		return User{}, false
	}
	for _, u := range s.byID {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func (s *MemoryStore) FindByID(ctx context.Context, userID string) (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	return u, ok, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || passwordHash == "" {
		return User{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findByEmailLocked(email); ok {
		return User{}, ErrDuplicateEmail
	}
	u := User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		GlobalRole:   DefaultGlobalRole,
		Status:       StatusActive,
		CreatedAt:    s.clock().UTC(),
	}
	s.byID[u.UserID] = u
	return u, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (User, error) {
	email := NormalizeEmail(p.Email)
	return s.update(userID, func(u *User) error {
		if email != "" && email != u.Email {
			if other, ok := s.findByEmailLocked(email); ok && other.UserID != userID {
				return ErrDuplicateEmail
			}
			u.Email = email
		}
		u.FirstName = p.FirstName
		u.LastName = p.LastName
		return nil
	})
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.update(userID, func(u *User) error {
		u.PasswordHash = passwordHash
		return nil
	})
	return err
}

func (s *MemoryStore) SetStatus(ctx context.Context, userID string, status Status) (User, error) {
	return s.update(userID, func(u *User) error {
		u.Status = status
		return nil
	})
}

func (s *MemoryStore) SetGlobalRole(ctx context.Context, userID, role string) (User, error) {
	return s.update(userID, func(u *User) error {
		u.GlobalRole = role
		return nil
	})
}

func (s *MemoryStore) List(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status == StatusPending, out[j].Status == StatusPending
		if pi != pj {
			return pi
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) update(userID string, fn func(u *User) error) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	if err := fn(&u); err != nil {
		return User{}, err
	}
	now := s.clock().UTC()
	u.UpdatedAt = &now
	s.byID[userID] = u
	return u, nil
}
