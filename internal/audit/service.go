package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is
// append-only; there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records privileged actions. Callers treat failures as
// best-effort and log them rather than failing the request.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.WorkspaceID == "" && e.TargetUserID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogUserAction records an action taken on a user account.
func (s *Service) LogUserAction(ctx context.Context, typ EventType, actor Actor, targetUserID, message string, metadata map[string]any) error {
	return s.Append(ctx, Event{
		Type:         typ,
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		IPAddress:    actor.IP,
		TargetUserID: targetUserID,
		Message:      message,
		Metadata:     metadata,
	})
}

// LogWorkspaceAction records an action scoped to one workspace.
func (s *Service) LogWorkspaceAction(ctx context.Context, typ EventType, actor Actor, workspaceID, message string, metadata map[string]any) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        typ,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		IPAddress:   actor.IP,
		Message:     message,
		Metadata:    metadata,
	})
}
