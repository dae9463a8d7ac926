package users

import "time"

// User is a row of pype_voice_users. PasswordHash never leaves this process.
type User struct {
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	GlobalRole   string     `json:"global_role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
	StatusRejected  Status = "rejected"
)

// DefaultGlobalRole is assigned at registration.
const DefaultGlobalRole = "user"

// IsActive treats an unset status as active, matching rows created before
// the status column existed.
func (s Status) IsActive() bool {
	return s == "" || s == StatusActive
}

// InactiveMessage is the sign-in refusal shown for a non-active account.
func (s Status) InactiveMessage() string {
	switch s {
	case StatusSuspended:
		return "Your account has been suspended. Please contact an administrator."
	case StatusPending:
		return "Your account is pending approval. Please wait for an administrator to approve your account."
	case StatusRejected:
		return "Your account has been rejected. Please contact an administrator."
	default:
		return "Your account is not active. Please contact an administrator."
	}
}

// ProfileUpdate carries the editable profile fields. Empty Email keeps the current one.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
}
