package users

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrInvalidInput   = errors.New("invalid user input")
)

// Store is the persistence boundary for user records.
// It holds no role or session logic.
type Store interface {
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	FindByID(ctx context.Context, userID string) (User, bool, error)
	CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (User, error)

	UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetStatus(ctx context.Context, userID string, status Status) (User, error)
	SetGlobalRole(ctx context.Context, userID, role string) (User, error)

	// List returns pending accounts first, then newest first.
	List(ctx context.Context) ([]User, error)
}

// NormalizeEmail is applied on every write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
