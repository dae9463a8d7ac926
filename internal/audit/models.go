package audit

import "time"

// Event is an append-only record of a privileged action. Events are never
// updated or deleted. Every event names a workspace, a target user, or both.
type Event struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	Type        EventType `json:"type"`

	ActorUserID string `json:"actor_user_id,omitempty"`
	// ActorRole is the global role at the time of the action.
	ActorRole string `json:"actor_role,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`

	TargetUserID string `json:"target_user_id,omitempty"`

	Message  string         `json:"message,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeUserStatusChanged EventType = "user_status_changed"
	EventTypeGlobalRoleChanged EventType = "global_role_changed"
	EventTypeMemberAdded       EventType = "member_added"
	EventTypeMemberRemoved     EventType = "member_removed"
	EventTypeCreditsAdjusted   EventType = "credits_adjusted"
)

// Actor is who performed an action.
type Actor struct {
	UserID string
	Role   string
	IP     string
}
